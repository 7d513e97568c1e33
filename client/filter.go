package client

import "strings"

// Filter seleciona produtos como o painel: busca por nome, categoria e status.
// Campos vazios não filtram.
type Filter struct {
	Search   string
	Category string
	Status   string
}

// FilterProducts aplica o filtro preservando a ordem original
func FilterProducts(products []Product, f Filter) []Product {
	search := strings.ToLower(f.Search)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories retorna as categorias distintas na ordem em que aparecem
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}
