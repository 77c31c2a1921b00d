package booking

import (
	"fmt"

	"github.com/example/ride-dashboards/internal/models"
)

// Catalog is the read-only set of offers visible to a browsing rider.
// It copies its input and only hands out copies, so a snapshot never
// changes after construction.
type Catalog struct {
	offers []models.RideOffer
	index  map[string]int
}

func NewCatalog(offers []models.RideOffer) (*Catalog, error) {
	c := &Catalog{
		offers: make([]models.RideOffer, 0, len(offers)),
		index:  make(map[string]int, len(offers)),
	}
	for _, o := range offers {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[o.ID]; dup {
			return nil, fmt.Errorf("offer %s: duplicate id", o.ID)
		}
		c.index[o.ID] = len(c.offers)
		c.offers = append(c.offers, o)
	}
	return c, nil
}

// Offers returns the catalog in its original order.
func (c *Catalog) Offers() []models.RideOffer {
	out := make([]models.RideOffer, len(c.offers))
	copy(out, c.offers)
	return out
}

func (c *Catalog) Lookup(id string) (models.RideOffer, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.RideOffer{}, false
	}
	return c.offers[i], true
}

func (c *Catalog) Len() int { return len(c.offers) }
