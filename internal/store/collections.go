package store

import (
	"fmt"

	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/apmoronez/dogbot/internal/validation"
)

// Collection names
const (
	CollectionTeams    = "teams"
	CollectionUsers    = "users"
	CollectionChannels = "channels"
)

// Collection is one top-level namespace: its metadata documents and the
// dogs of each of its tenants
type Collection struct {
	Name string
	*MetadataStore
	Dogs *Repository
}

// Collections registers the teams, users and channels collections
type Collections struct {
	Teams    *Collection
	Users    *Collection
	Channels *Collection

	byName map[string]*Collection
}

// NewCollections builds every collection over one engine
func NewCollections(engine kv.Engine, namespace string, opts ...Option) *Collections {
	c := &Collections{byName: make(map[string]*Collection)}
	c.Teams = c.add(engine, namespace, CollectionTeams, opts)
	c.Users = c.add(engine, namespace, CollectionUsers, opts)
	c.Channels = c.add(engine, namespace, CollectionChannels, opts)
	return c
}

func (c *Collections) add(engine kv.Engine, namespace, name string, opts []Option) *Collection {
	col := &Collection{
		Name:          name,
		MetadataStore: NewMetadataStore(engine, namespace, name),
		Dogs:          NewRepository(engine, namespace, name, opts...),
	}
	c.byName[name] = col
	return col
}

// Get looks a collection up by name
func (c *Collections) Get(name string) (*Collection, error) {
	if err := validation.NewValidator().ValidateCollection(name); err != nil {
		return nil, err
	}
	col, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return col, nil
}
