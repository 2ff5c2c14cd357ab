package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Recorder is the audit trail the store reports its mutations to.
type Recorder interface {
	Record(actor, action, details string, severity models.Severity) models.AuditLogEntry
}

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

type Filter struct {
	CategoryID string
	Search     string
	Sort       SortOrder
	ActiveOnly bool
}

type Store struct {
	mu         sync.RWMutex
	services   []models.Service
	categories []models.Category
	audit      Recorder
}

func NewStore(audit Recorder) *Store {
	return &Store{audit: audit}
}

// Load replaces the catalog content without auditing; it is used at startup.
func (s *Store) Load(seed *Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = append([]models.Category(nil), seed.Categories...)
	s.services = make([]models.Service, 0, len(seed.Services))
	for _, svc := range seed.Services {
		s.services = append(s.services, svc.Clone())
	}
}

func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.categories...)
}

func (s *Store) Get(id string) (models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.services[i].Clone(), nil
	}
	return models.Service{}, errors.Wrapf(models.ErrNotFound, "service %s", id)
}

// GetActive returns a service only if it can be booked.
func (s *Store) GetActive(id string) (models.Service, error) {
	svc, err := s.Get(id)
	if err != nil {
		return models.Service{}, err
	}
	if !svc.Active {
		return models.Service{}, errors.Wrapf(models.ErrInvalidSelection, "service %s is not available", id)
	}
	return svc, nil
}

func (s *Store) List(f Filter) []models.Service {
	s.mu.RLock()
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Service, 0, len(s.services))
	for _, svc := range s.services {
		if f.ActiveOnly && !svc.Active {
			continue
		}
		if f.CategoryID != "" && f.CategoryID != "all" && svc.CategoryID != f.CategoryID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(svc.Name), needle) &&
			!strings.Contains(strings.ToLower(svc.Description), needle) {
			continue
		}
		out = append(out, svc.Clone())
	}
	s.mu.RUnlock()

	switch f.Sort {
	case SortAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].BasePrice.LessThan(out[j].BasePrice) })
	case SortDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].BasePrice.GreaterThan(out[j].BasePrice) })
	}
	return out
}

func (s *Store) Add(actor string, svc models.Service) (models.Service, error) {
	if err := validate(svc); err != nil {
		return models.Service{}, err
	}

	s.mu.Lock()
	if s.indexOf(svc.ID) >= 0 {
		s.mu.Unlock()
		return models.Service{}, errors.Wrapf(models.ErrInvalidSelection, "service %s already exists", svc.ID)
	}
	s.services = append(s.services, svc.Clone())
	s.mu.Unlock()

	s.audit.Record(actor, models.ActionInventory, fmt.Sprintf("New service added: %s", svc.Name), models.SeverityInfo)
	return svc, nil
}

// Update replaces the definition of an existing service. Orders already
// placed keep their own snapshot and are unaffected.
func (s *Store) Update(actor, id string, svc models.Service) (models.Service, error) {
	svc.ID = id
	if err := validate(svc); err != nil {
		return models.Service{}, err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Service{}, errors.Wrapf(models.ErrNotFound, "service %s", id)
	}
	s.services[i] = svc.Clone()
	s.mu.Unlock()

	s.audit.Record(actor, models.ActionInventory, fmt.Sprintf("Service updated ID: %s", id), models.SeverityInfo)
	return svc, nil
}

func (s *Store) Delete(actor, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return errors.Wrapf(models.ErrNotFound, "service %s", id)
	}
	s.services = append(s.services[:i], s.services[i+1:]...)
	s.mu.Unlock()

	s.audit.Record(actor, models.ActionInventory, fmt.Sprintf("Service deleted ID: %s", id), models.SeverityWarning)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.services {
		if s.services[i].ID == id {
			return i
		}
	}
	return -1
}

func validate(svc models.Service) error {
	if svc.ID == "" || svc.Name == "" {
		return errors.Wrap(models.ErrInvalidSelection, "service id and name are required")
	}
	if svc.BasePrice.LessThan(decimal.Zero) {
		return errors.Wrapf(models.ErrInvalidSelection, "service %s has a negative base price", svc.ID)
	}
	seen := map[string]bool{}
	for _, v := range svc.Variants {
		if v.ID == "" || seen["v:"+v.ID] {
			return errors.Wrapf(models.ErrInvalidSelection, "service %s has a missing or duplicate variant id %q", svc.ID, v.ID)
		}
		seen["v:"+v.ID] = true
	}
	for _, o := range svc.Options {
		if o.ID == "" || seen["o:"+o.ID] {
			return errors.Wrapf(models.ErrInvalidSelection, "service %s has a missing or duplicate option id %q", svc.ID, o.ID)
		}
		seen["o:"+o.ID] = true
	}
	return nil
}
