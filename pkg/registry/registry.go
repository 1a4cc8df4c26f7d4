// Package registry holds the catalog of trigger and action descriptors nodes are built from.
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/otomato/pkg/models"
	"github.com/go-playground/validator/v10"
)

var (
	ErrDescriptorNotFound = errors.New("descriptor not found")
	ErrDuplicateID        = errors.New("descriptor id already registered")
	ErrInvalidCatalog     = errors.New("invalid catalog")
	ErrUnknownParamType   = errors.New("unknown parameter type")
)

//go:embed catalog.json
var builtinCatalog []byte

// Catalog is the on-disk layout of a descriptor catalog.
type Catalog struct {
	Triggers []models.Descriptor `json:"triggers"`
	Actions  []models.Descriptor `json:"actions"`
}

type Registry struct {
	logger   *slog.Logger
	validate *validator.Validate

	mu       sync.RWMutex
	triggers map[int]models.Descriptor
	actions  map[int]models.Descriptor
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		triggers: make(map[int]models.Descriptor),
		actions:  make(map[int]models.Descriptor),
	}
}

// Default returns a registry loaded with the built-in catalog.
func Default(log *slog.Logger) (*Registry, error) {
	r := NewRegistry(log)
	if err := r.Load(builtinCatalog); err != nil {
		return nil, err
	}

	return r, nil
}

// Load validates catalog JSON and registers every descriptor in it.
func (r *Registry) Load(data []byte) error {
	if err := validateCatalog(data); err != nil {
		return err
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	for _, d := range catalog.Triggers {
		d.Category = models.CategoryTypeTrigger
		if err := r.Register(d); err != nil {
			return err
		}
	}

	for _, d := range catalog.Actions {
		d.Category = models.CategoryTypeAction
		if err := r.Register(d); err != nil {
			return err
		}
	}

	r.logger.Info("Loaded catalog", "triggers", len(catalog.Triggers), "actions", len(catalog.Actions))

	return nil
}

// Register adds a single descriptor. Ids are unique per category.
func (r *Registry) Register(d models.Descriptor) error {
	if err := r.validate.Struct(d); err != nil {
		return fmt.Errorf("%w: descriptor %q: %w", ErrInvalidCatalog, d.Name, err)
	}

	for _, p := range d.Parameters {
		if !p.Type.Known() {
			return fmt.Errorf("%w: %q on parameter %q of %q", ErrUnknownParamType, p.Type, p.Key, d.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.table(d.Category)
	if _, exists := table[d.ID]; exists {
		return fmt.Errorf("%w: %s %d", ErrDuplicateID, d.Category, d.ID)
	}

	table[d.ID] = d

	r.logger.Debug("Registered descriptor", "category", d.Category, "id", d.ID, "name", d.Name)

	return nil
}

func (r *Registry) table(category models.CategoryType) map[int]models.Descriptor {
	if category == models.CategoryTypeTrigger {
		return r.triggers
	}

	return r.actions
}

// Descriptor returns the catalog entry for id in category.
func (r *Registry) Descriptor(category models.CategoryType, id int) (models.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.table(category)[id]
	if !ok {
		return models.Descriptor{}, fmt.Errorf("%w: %s %d", ErrDescriptorNotFound, category, id)
	}

	d.Parameters = slices.Clone(d.Parameters)

	return d, nil
}

// FindByName looks a descriptor up by its case-insensitive name.
func (r *Registry) FindByName(category models.CategoryType, name string) (models.Descriptor, error) {
	for _, d := range r.list(category) {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}

	return models.Descriptor{}, fmt.Errorf("%w: %s %q", ErrDescriptorNotFound, category, name)
}

// Triggers returns trigger descriptors ordered by id.
func (r *Registry) Triggers() []models.Descriptor { return r.list(models.CategoryTypeTrigger) }

// Actions returns action descriptors ordered by id.
func (r *Registry) Actions() []models.Descriptor { return r.list(models.CategoryTypeAction) }

func (r *Registry) list(category models.CategoryType) []models.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table := r.table(category)
	out := make([]models.Descriptor, 0, len(table))

	for _, d := range table {
		d.Parameters = slices.Clone(d.Parameters)
		out = append(out, d)
	}

	slices.SortFunc(out, func(a, b models.Descriptor) int { return a.ID - b.ID })

	return out
}

func (r *Registry) NewTrigger(id int) (*models.Trigger, error) {
	d, err := r.Descriptor(models.CategoryTypeTrigger, id)
	if err != nil {
		return nil, err
	}

	return models.NewTrigger(d), nil
}

func (r *Registry) NewAction(id int) (*models.Action, error) {
	d, err := r.Descriptor(models.CategoryTypeAction, id)
	if err != nil {
		return nil, err
	}

	return models.NewAction(d), nil
}
