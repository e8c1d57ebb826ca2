package addon_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/addonpulse/addonpulse/internal/addon"
	"github.com/addonpulse/addonpulse/internal/api/models"
	"github.com/addonpulse/addonpulse/internal/health"
)

// fakeChecker reports every even-indexed URL online.
type fakeChecker struct {
	calls [][]string
}

func (f *fakeChecker) CheckAll(_ context.Context, urls []string, onProgress health.Progress) []health.Report {
	f.calls = append(f.calls, urls)
	reports := make([]health.Report, len(urls))
	for i := range urls {
		reports[i] = health.Report{
			Status:      health.Status{Online: i%2 == 0},
			LastChecked: time.Now(),
		}
		if i%2 != 0 {
			reports[i].Error = "Connection Failed"
		}
	}
	if onProgress != nil {
		onProgress(len(urls), len(urls))
	}
	return reports
}

type fakeVerifier struct {
	result health.FunctionalResult
	urls   []string
}

func (f *fakeVerifier) Verify(_ context.Context, installURL string) health.FunctionalResult {
	f.urls = append(f.urls, installURL)
	return f.result
}

func newTestService(t *testing.T) (*addon.Service, *addon.InMemoryRepository, *fakeChecker, *fakeVerifier) {
	t.Helper()
	repo := addon.NewInMemoryRepository()
	checker := &fakeChecker{}
	verifier := &fakeVerifier{}
	return addon.NewService(repo, checker, verifier), repo, checker, verifier
}

func install(t *testing.T, service *addon.Service, name, installURL string) *models.Addon {
	t.Helper()
	a, err := service.Install(context.Background(), &models.AddonCreateRequest{
		Name:       name,
		InstallURL: installURL,
	})
	if err != nil {
		t.Fatalf("failed to install addon %q: %v", name, err)
	}
	return a
}

func TestService_Install(t *testing.T) {
	service, _, _, _ := newTestService(t)

	a := install(t, service, "Cinemeta", "https://v3-cinemeta.example.com/manifest.json")

	if !strings.HasPrefix(a.ID, "add_") {
		t.Errorf("expected addon ID to start with 'add_', got %q", a.ID)
	}
	if a.Position != 0 {
		t.Errorf("expected first addon at position 0, got %d", a.Position)
	}

	b := install(t, service, "OpenSubtitles", "https://opensubtitles.example.com/manifest.json")
	if b.Position != 1 {
		t.Errorf("expected second addon at position 1, got %d", b.Position)
	}
}

func TestService_Install_ValidationErrors(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     *models.AddonCreateRequest
		wantField string
	}{
		{
			name:      "empty name",
			input:     &models.AddonCreateRequest{Name: "", InstallURL: "https://a.example/manifest.json"},
			wantField: "name",
		},
		{
			name:      "name too long",
			input:     &models.AddonCreateRequest{Name: strings.Repeat("a", 121), InstallURL: "https://a.example/manifest.json"},
			wantField: "name",
		},
		{
			name:      "empty install URL",
			input:     &models.AddonCreateRequest{Name: "Test", InstallURL: ""},
			wantField: "installUrl",
		},
		{
			name:      "relative install URL",
			input:     &models.AddonCreateRequest{Name: "Test", InstallURL: "/manifest.json"},
			wantField: "installUrl",
		},
		{
			name:      "non-http scheme",
			input:     &models.AddonCreateRequest{Name: "Test", InstallURL: "ftp://a.example/manifest.json"},
			wantField: "installUrl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Install(ctx, tt.input)

			var vErr *addon.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, fe := range vErr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a field error on %q, got %+v", tt.wantField, vErr.Errors)
			}
		})
	}
}

func TestService_Delete_ProtectedAddon(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	a := install(t, service, "Cinemeta", "https://v3-cinemeta.example.com/manifest.json")
	if _, err := service.SetProtected(ctx, a.ID, true); err != nil {
		t.Fatalf("failed to protect addon: %v", err)
	}

	if err := service.Delete(ctx, a.ID); !errors.Is(err, addon.ErrProtected) {
		t.Fatalf("expected ErrProtected, got %v", err)
	}

	if _, err := service.SetProtected(ctx, a.ID, false); err != nil {
		t.Fatalf("failed to unprotect addon: %v", err)
	}
	if err := service.Delete(ctx, a.ID); err != nil {
		t.Fatalf("expected delete to succeed after unprotect, got %v", err)
	}
}

func TestService_Reorder(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	a := install(t, service, "A", "https://a.example/manifest.json")
	b := install(t, service, "B", "https://b.example/manifest.json")
	c := install(t, service, "C", "https://c.example/manifest.json")

	result, err := service.Reorder(ctx, []string{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("failed to reorder: %v", err)
	}

	got := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		got = append(got, item.Name)
	}
	want := []string{"C", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestService_Reorder_RejectsPartialPermutation(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	a := install(t, service, "A", "https://a.example/manifest.json")
	b := install(t, service, "B", "https://b.example/manifest.json")

	cases := map[string][]string{
		"missing addon":   {a.ID},
		"duplicate addon": {a.ID, a.ID},
		"unknown addon":   {a.ID, "add_unknown"},
		"extra addon":     {a.ID, b.ID, "add_extra"},
	}

	for name, ids := range cases {
		t.Run(name, func(t *testing.T) {
			var vErr *addon.ValidationError
			if _, err := service.Reorder(ctx, ids); !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_BulkSave(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	existing := install(t, service, "Keep", "https://keep.example/manifest.json")

	result, err := service.BulkSave(ctx, &models.AddonBulkSaveRequest{
		Items: []models.AddonBulkItem{
			{Name: "New", InstallURL: "https://new.example/manifest.json"},
			{ID: existing.ID, Name: "Keep Renamed", InstallURL: existing.InstallURL},
		},
	})
	if err != nil {
		t.Fatalf("failed to bulk save: %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 addons, got %d", len(result.Items))
	}
	if result.Items[0].Name != "New" || result.Items[1].Name != "Keep Renamed" {
		t.Errorf("unexpected saved order: %+v", result.Items)
	}
	if result.Items[1].ID != existing.ID {
		t.Errorf("expected existing ID %q to survive, got %q", existing.ID, result.Items[1].ID)
	}
}

func TestService_BulkSave_DropsOmittedAddons(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	dropped := install(t, service, "Dropped", "https://dropped.example/manifest.json")
	kept := install(t, service, "Kept", "https://kept.example/manifest.json")

	result, err := service.BulkSave(ctx, &models.AddonBulkSaveRequest{
		Items: []models.AddonBulkItem{
			{ID: kept.ID, Name: kept.Name, InstallURL: kept.InstallURL},
		},
	})
	if err != nil {
		t.Fatalf("failed to bulk save: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != kept.ID {
		t.Fatalf("expected only the kept addon, got %+v", result.Items)
	}

	if _, err := service.Get(ctx, dropped.ID); !errors.Is(err, addon.ErrAddonNotFound) {
		t.Fatalf("expected dropped addon to be gone, got %v", err)
	}
}

func TestService_BulkSave_RefusesToDropProtected(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	protected := install(t, service, "Protected", "https://protected.example/manifest.json")
	if _, err := service.SetProtected(ctx, protected.ID, true); err != nil {
		t.Fatalf("failed to protect addon: %v", err)
	}

	_, err := service.BulkSave(ctx, &models.AddonBulkSaveRequest{
		Items: []models.AddonBulkItem{
			{Name: "Replacement", InstallURL: "https://replacement.example/manifest.json"},
		},
	})
	if !errors.Is(err, addon.ErrProtected) {
		t.Fatalf("expected ErrProtected, got %v", err)
	}
}

func TestService_CheckAll_PersistsHealth(t *testing.T) {
	service, repo, checker, _ := newTestService(t)
	ctx := context.Background()

	install(t, service, "A", "https://a.example/manifest.json")
	install(t, service, "B", "https://b.example/manifest.json")

	var progress [][2]int
	result, err := service.CheckAll(ctx, func(completed, total int) {
		progress = append(progress, [2]int{completed, total})
	})
	if err != nil {
		t.Fatalf("failed to run health check: %v", err)
	}

	if len(checker.calls) != 1 || len(checker.calls[0]) != 2 {
		t.Fatalf("expected one sweep over 2 URLs, got %+v", checker.calls)
	}
	if len(progress) == 0 {
		t.Error("expected progress callbacks to be forwarded")
	}

	if result.Items[0].Health == nil || !result.Items[0].Health.Online {
		t.Errorf("expected first addon online, got %+v", result.Items[0].Health)
	}
	if result.Items[1].Health == nil || result.Items[1].Health.Online {
		t.Errorf("expected second addon offline, got %+v", result.Items[1].Health)
	}
	if result.Items[1].Health.Error != "Connection Failed" {
		t.Errorf("expected error to be persisted, got %q", result.Items[1].Health.Error)
	}

	// The repository carries the results too.
	stored, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list addons: %v", err)
	}
	if stored[0].Health == nil || stored[1].Health == nil {
		t.Fatal("expected health records to be persisted")
	}
}

func TestService_Verify(t *testing.T) {
	service, _, _, verifier := newTestService(t)
	ctx := context.Background()

	verifier.result = health.FunctionalResult{
		Healthy:   true,
		Message:   "Functional (Returned Data)",
		LatencyMS: 42,
	}

	a := install(t, service, "A", "https://a.example/manifest.json")

	result, err := service.Verify(ctx, a.ID)
	if err != nil {
		t.Fatalf("failed to verify addon: %v", err)
	}
	if !result.Healthy || result.Message != "Functional (Returned Data)" || result.LatencyMS != 42 {
		t.Errorf("unexpected verification result: %+v", result)
	}
	if len(verifier.urls) != 1 || verifier.urls[0] != a.InstallURL {
		t.Errorf("expected verifier to probe %q, got %v", a.InstallURL, verifier.urls)
	}

	if _, err := service.Verify(ctx, "add_missing"); !errors.Is(err, addon.ErrAddonNotFound) {
		t.Fatalf("expected ErrAddonNotFound, got %v", err)
	}
}
