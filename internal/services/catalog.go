package services

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"betinho-miniapp/internal/models"
)

var ErrGameNotFound = errors.New("game not found")

// SeedGames is the fixed list shown on the home page.
var SeedGames = []models.GameDescriptor{
	{
		ID:              1,
		Title:           "France vs Belgium",
		SideA:           "France",
		SideB:           "Belgium",
		ContractAddress: "0xb4e1D3bA3AD24747Bab5ef419E02A2830E588202",
		Starred:         false,
		Image:           "https://i.ytimg.com/vi/qP6cWQbXUMQ/maxresdefault.jpg",
	},
}

// Catalog holds game descriptors. Only the starred flag ever changes.
type Catalog struct {
	mu    sync.RWMutex
	games map[int]models.GameDescriptor
}

func NewCatalog(seed ...models.GameDescriptor) *Catalog {
	if len(seed) == 0 {
		seed = SeedGames
	}
	c := &Catalog{games: make(map[int]models.GameDescriptor, len(seed))}
	for _, g := range seed {
		c.games[g.ID] = g
	}
	return c
}

func (c *Catalog) List() []models.GameDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.GameDescriptor, 0, len(c.games))
	for _, g := range c.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Get(id int) (models.GameDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ok := c.games[id]
	if !ok {
		return models.GameDescriptor{}, ErrGameNotFound
	}
	return g, nil
}

func (c *Catalog) FindByAddress(address string) (models.GameDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, g := range c.games {
		if strings.EqualFold(g.ContractAddress, address) {
			return g, true
		}
	}
	return models.GameDescriptor{}, false
}

func (c *Catalog) ToggleStar(id int) (models.GameDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.games[id]
	if !ok {
		return models.GameDescriptor{}, ErrGameNotFound
	}
	g.Starred = !g.Starred
	c.games[id] = g
	return g, nil
}
