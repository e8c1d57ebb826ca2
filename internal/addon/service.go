package addon

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/addonpulse/addonpulse/internal/api/models"
	"github.com/addonpulse/addonpulse/internal/health"
)

// Validation constants.
const (
	MaxNameLength = 120
)

// HealthChecker runs reachability checks over a set of install URLs.
type HealthChecker interface {
	CheckAll(ctx context.Context, installURLs []string, onProgress health.Progress) []health.Report
}

// FunctionalVerifier probes a single addon end to end.
type FunctionalVerifier interface {
	Verify(ctx context.Context, installURL string) health.FunctionalResult
}

// Service provides addon operations.
type Service struct {
	repo     Repository
	checker  HealthChecker
	verifier FunctionalVerifier
}

// NewService creates a new addon service.
func NewService(repo Repository, checker HealthChecker, verifier FunctionalVerifier) *Service {
	return &Service{repo: repo, checker: checker, verifier: verifier}
}

// List retrieves all addons ordered by position.
func (s *Service) List(ctx context.Context) (*models.AddonList, error) {
	addons, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Addon, 0, len(addons))
	for _, a := range addons {
		items = append(items, s.toAPIAddon(a))
	}
	return &models.AddonList{Items: items}, nil
}

// Get retrieves an addon by ID.
func (s *Service) Get(ctx context.Context, addonID string) (*models.Addon, error) {
	a, err := s.repo.Get(ctx, addonID)
	if err != nil {
		return nil, err
	}

	result := s.toAPIAddon(a)
	return &result, nil
}

// Install registers a new addon at the end of the list.
func (s *Service) Install(ctx context.Context, input *models.AddonCreateRequest) (*models.Addon, error) {
	if fieldErrors := validateInstall(input.Name, input.InstallURL); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a := &Addon{
		ID:         newAddonID(),
		Name:       input.Name,
		InstallURL: input.InstallURL,
		Position:   len(existing),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	result := s.toAPIAddon(a)
	return &result, nil
}

// Update updates an existing addon.
func (s *Service) Update(ctx context.Context, addonID string, input *models.AddonUpdateRequest) (*models.Addon, error) {
	a, err := s.repo.Get(ctx, addonID)
	if err != nil {
		return nil, err
	}

	var errs []models.FieldError
	if input.Name != nil {
		errs = append(errs, validateName(*input.Name)...)
	}
	if input.InstallURL != nil {
		errs = append(errs, validateInstallURL(*input.InstallURL)...)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	if input.Name != nil {
		a.Name = *input.Name
	}
	if input.InstallURL != nil {
		a.InstallURL = *input.InstallURL
	}
	a.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	result := s.toAPIAddon(a)
	return &result, nil
}

// Delete removes an addon. Protected addons cannot be deleted.
func (s *Service) Delete(ctx context.Context, addonID string) error {
	a, err := s.repo.Get(ctx, addonID)
	if err != nil {
		return err
	}
	if a.Protected {
		return ErrProtected
	}
	return s.repo.Delete(ctx, addonID)
}

// Reorder applies a new ordering. The given IDs must be a full
// permutation of the installed addons.
func (s *Service) Reorder(ctx context.Context, ids []string) (*models.AddonList, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if len(ids) != len(existing) {
		return nil, &ValidationError{Errors: []models.FieldError{
			{Field: "ids", Message: "must list every installed addon exactly once"},
		}}
	}
	known := make(map[string]bool, len(existing))
	for _, a := range existing {
		known[a.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			return nil, &ValidationError{Errors: []models.FieldError{
				{Field: "ids", Message: "must list every installed addon exactly once"},
			}}
		}
		seen[id] = true
	}

	if err := s.repo.Reorder(ctx, ids); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// SetProtected toggles delete protection on an addon.
func (s *Service) SetProtected(ctx context.Context, addonID string, protected bool) (*models.Addon, error) {
	a, err := s.repo.Get(ctx, addonID)
	if err != nil {
		return nil, err
	}

	a.Protected = protected
	a.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	result := s.toAPIAddon(a)
	return &result, nil
}

// BulkSave replaces the addon collection wholesale. Items keep the given
// order; items without an ID are treated as new installs.
func (s *Service) BulkSave(ctx context.Context, input *models.AddonBulkSaveRequest) (*models.AddonList, error) {
	var errs []models.FieldError
	for _, item := range input.Items {
		errs = append(errs, validateInstall(item.Name, item.InstallURL)...)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	createdAt := make(map[string]time.Time, len(existing))
	protected := make(map[string]bool, len(existing))
	for _, a := range existing {
		createdAt[a.ID] = a.CreatedAt
		protected[a.ID] = a.Protected
	}

	now := time.Now()
	addons := make([]*Addon, 0, len(input.Items))
	kept := make(map[string]bool, len(input.Items))
	for pos, item := range input.Items {
		id := item.ID
		if id == "" {
			id = newAddonID()
		}
		created, ok := createdAt[id]
		if !ok {
			created = now
		}
		addons = append(addons, &Addon{
			ID:         id,
			Name:       item.Name,
			InstallURL: item.InstallURL,
			Position:   pos,
			Protected:  item.Protected,
			CreatedAt:  created,
			UpdatedAt:  now,
		})
		kept[id] = true
	}

	// Protected addons cannot be dropped by a bulk save.
	for _, a := range existing {
		if protected[a.ID] && !kept[a.ID] {
			return nil, ErrProtected
		}
	}

	if err := s.repo.BulkUpsert(ctx, addons); err != nil {
		return nil, err
	}
	for _, a := range existing {
		if !kept[a.ID] {
			if err := s.repo.Delete(ctx, a.ID); err != nil && !errors.Is(err, ErrAddonNotFound) {
				return nil, err
			}
		}
	}

	return s.List(ctx)
}

// CheckAll runs a health sweep over every installed addon, persists the
// results, and returns the refreshed collection. Results line up with the
// stored order.
func (s *Service) CheckAll(ctx context.Context, onProgress health.Progress) (*models.AddonList, error) {
	addons, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(addons))
	for i, a := range addons {
		urls[i] = a.InstallURL
	}

	reports := s.checker.CheckAll(ctx, urls, onProgress)

	items := make([]models.Addon, 0, len(addons))
	for i, a := range addons {
		h := Health{
			Online:      reports[i].Online,
			Error:       reports[i].Error,
			LastChecked: reports[i].LastChecked,
		}
		if err := s.repo.SaveHealth(ctx, a.ID, h); err != nil {
			return nil, err
		}
		a.Health = &h
		items = append(items, s.toAPIAddon(a))
	}

	return &models.AddonList{Items: items}, nil
}

// Verify runs a functional probe against one addon.
func (s *Service) Verify(ctx context.Context, addonID string) (*models.AddonVerifyResponse, error) {
	a, err := s.repo.Get(ctx, addonID)
	if err != nil {
		return nil, err
	}

	result := s.verifier.Verify(ctx, a.InstallURL)
	return &models.AddonVerifyResponse{
		Healthy:   result.Healthy,
		Message:   result.Message,
		LatencyMS: result.LatencyMS,
	}, nil
}

// newAddonID generates a prefixed addon identifier.
func newAddonID() string {
	return "add_" + uuid.New().String()[:22]
}

// validateInstall validates the fields of a new install.
func validateInstall(name, installURL string) []models.FieldError {
	var errs []models.FieldError
	errs = append(errs, validateName(name)...)
	errs = append(errs, validateInstallURL(installURL)...)
	return errs
}

// validateName validates an addon name.
func validateName(name string) []models.FieldError {
	if name == "" {
		return []models.FieldError{{Field: "name", Message: "is required"}}
	}
	if len(name) > MaxNameLength {
		return []models.FieldError{{Field: "name", Message: "must be at most 120 characters"}}
	}
	return nil
}

// validateInstallURL validates an addon install URL.
func validateInstallURL(installURL string) []models.FieldError {
	if installURL == "" {
		return []models.FieldError{{Field: "installUrl", Message: "is required"}}
	}
	u, err := url.Parse(installURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []models.FieldError{{Field: "installUrl", Message: "must be an absolute http(s) URL"}}
	}
	return nil
}

// toAPIAddon converts a domain Addon to an API Addon.
func (s *Service) toAPIAddon(a *Addon) models.Addon {
	result := models.Addon{
		ID:         a.ID,
		Name:       a.Name,
		InstallURL: a.InstallURL,
		Position:   a.Position,
		Protected:  a.Protected,
		CreatedAt:  models.Timestamp(a.CreatedAt),
		UpdatedAt:  models.Timestamp(a.UpdatedAt),
	}
	if a.Health != nil {
		result.Health = &models.AddonHealth{
			Online:      a.Health.Online,
			Error:       a.Health.Error,
			LastChecked: models.Timestamp(a.Health.LastChecked),
		}
	}
	return result
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
