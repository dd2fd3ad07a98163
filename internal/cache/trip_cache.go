package cache

import (
	"context"

	dom "Tripboard/internal/domain"
)

const keyCredentials = "remote:credentials"

// TripCache namespaces a Store by trip identifier.
type TripCache struct {
	store  Store
	tripID string
}

// NewTripCache returns a TripCache for tripID.
func NewTripCache(store Store, tripID string) *TripCache {
	return &TripCache{store: store, tripID: tripID}
}

func (c *TripCache) key(name string) string {
	return "trip:" + c.tripID + ":" + name
}

// Tasks returns the cached task list. ok is false if nothing was ever stored for the trip.
func (c *TripCache) Tasks(ctx context.Context) (list []dom.Task, ok bool, err error) {
	ok, err = c.store.Get(ctx, c.key("tasks"), &list)
	return list, ok, err
}

// SetTasks stores the task list.
func (c *TripCache) SetTasks(ctx context.Context, list []dom.Task) error {
	if list == nil {
		list = []dom.Task{}
	}
	return c.store.Set(ctx, c.key("tasks"), list)
}

// Settings returns cached settings, zero value on miss.
func (c *TripCache) Settings(ctx context.Context) (dom.Settings, error) {
	var s dom.Settings
	_, err := c.store.Get(ctx, c.key("settings"), &s)
	return s, err
}

// SetSettings stores settings.
func (c *TripCache) SetSettings(ctx context.Context, s dom.Settings) error {
	return c.store.Set(ctx, c.key("settings"), s)
}

// Assignees returns the explicitly maintained assignee names.
func (c *TripCache) Assignees(ctx context.Context) ([]string, error) {
	var names []string
	_, err := c.store.Get(ctx, c.key("assignees"), &names)
	return names, err
}

// SetAssignees stores the explicit assignee names.
func (c *TripCache) SetAssignees(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	return c.store.Set(ctx, c.key("assignees"), names)
}

// Credentials is a cached remote endpoint + key pair. It is not trip scoped.
type Credentials struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// LoadCredentials returns the last cached remote credential pair.
func LoadCredentials(ctx context.Context, store Store) (Credentials, bool, error) {
	var c Credentials
	ok, err := store.Get(ctx, keyCredentials, &c)
	if ok && (c.URL == "" || c.Key == "") {
		ok = false
	}
	return c, ok, err
}

// SaveCredentials caches a remote credential pair for later launches.
func SaveCredentials(ctx context.Context, store Store, c Credentials) error {
	return store.Set(ctx, keyCredentials, c)
}
