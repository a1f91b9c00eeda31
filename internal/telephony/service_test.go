package telephony

import (
	"context"
	"errors"
	"testing"

	telephonyadapters "github.com/ent0n29/vaani/internal/adapters/telephony"
	"github.com/ent0n29/vaani/internal/fallback"
	"github.com/ent0n29/vaani/internal/provider"
)

type downAdapter struct{}

func (downAdapter) PlaceCall(context.Context, provider.CallRequest) (provider.CallResult, error) {
	return provider.CallResult{}, provider.Unavailable("vapi", errors.New("503"))
}
func (downAdapter) CallStatus(context.Context, string) (provider.CallResult, error) {
	return provider.CallResult{}, provider.Unavailable("vapi", errors.New("503"))
}
func (downAdapter) HangUp(context.Context, string) error { return nil }

// plainAdapter places calls but cannot record them.
type plainAdapter struct{ lastTo string }

func (p *plainAdapter) PlaceCall(_ context.Context, req provider.CallRequest) (provider.CallResult, error) {
	p.lastTo = req.To
	return provider.CallResult{CallID: "ex-1", Status: "queued"}, nil
}
func (p *plainAdapter) CallStatus(_ context.Context, id string) (provider.CallResult, error) {
	return provider.CallResult{CallID: id, Status: "ringing"}, nil
}
func (p *plainAdapter) HangUp(context.Context, string) error {
	return provider.Rejected("exotel", "hang-up is not supported")
}

func newTestService(t *testing.T) (*Service, *plainAdapter) {
	t.Helper()
	reg := provider.NewRegistry()
	reg.RegisterTelephony("vapi", downAdapter{})
	reg.RegisterTelephony("twilio", telephonyadapters.NewMock())
	exotel := &plainAdapter{}
	reg.RegisterTelephony("exotel", exotel)
	return NewService(fallback.New(reg), reg, provider.MustCatalog(), 0), exotel
}

func TestPlaceFallsBackAndRoutesFollowUps(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	call, err := svc.Place(ctx, PlaceInput{To: "+91 98765-43210", AgentID: "a1"})
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if call.Provider != "twilio" || call.Status != "queued" || call.AgentID != "a1" {
		t.Fatalf("call = %+v, want twilio fallback", call)
	}
	if svc.ActiveCalls() != 1 {
		t.Fatalf("ActiveCalls() = %d, want 1", svc.ActiveCalls())
	}

	got, err := svc.Status(ctx, call.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if got.Status != "in-progress" {
		t.Fatalf("Status() = %q, want in-progress", got.Status)
	}

	rec, err := svc.Record(ctx, call.ID)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.ID != "rec-"+call.ID {
		t.Fatalf("recording = %+v", rec)
	}

	if err := svc.HangUp(ctx, call.ID); err != nil {
		t.Fatalf("HangUp() error = %v", err)
	}
	got, _ = svc.Status(ctx, call.ID)
	if got.Status != "completed" {
		t.Fatalf("status after hang-up = %q, want completed", got.Status)
	}
}

func TestPreferredProviderAndUnsupportedOperations(t *testing.T) {
	ctx := context.Background()
	svc, exotel := newTestService(t)

	call, err := svc.Place(ctx, PlaceInput{To: "09876543210", Provider: "exotel"})
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if call.Provider != "exotel" || exotel.lastTo != "09876543210" {
		t.Fatalf("call = %+v, to = %q", call, exotel.lastTo)
	}
	if _, err := svc.Record(ctx, call.ID); !errors.Is(err, ErrRecordingUnsupported) {
		t.Fatalf("Record() error = %v, want ErrRecordingUnsupported", err)
	}
	if err := svc.HangUp(ctx, call.ID); !errors.Is(err, provider.ErrRejected) {
		t.Fatalf("HangUp() error = %v, want ErrRejected", err)
	}
}

func TestPlaceValidation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []PlaceInput{
		{To: ""},
		{To: "call me maybe"},
		{To: "+91 98765 43210", Provider: "carrier_pigeon"},
	}
	for _, in := range cases {
		if _, err := svc.Place(context.Background(), in); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Place(%+v) error = %v, want ErrInvalid", in, err)
		}
	}
}

func TestUnknownCall(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Status(context.Background(), "missing"); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("Status() error = %v, want ErrCallNotFound", err)
	}
	if err := svc.HangUp(context.Background(), "missing"); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("HangUp() error = %v, want ErrCallNotFound", err)
	}
}

func TestProvidersListsCatalogEntries(t *testing.T) {
	svc, _ := newTestService(t)
	keys := map[string]bool{}
	for _, d := range svc.Providers() {
		keys[d.Key] = true
	}
	for _, want := range []string{"vapi", "twilio", "exotel"} {
		if !keys[want] {
			t.Fatalf("Providers() missing %q", want)
		}
	}
}
