package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
)

func testService(avgMinutes int) models.Service {
	return models.Service{
		ServiceID:      uuid.NewString(),
		OrganizationID: uuid.NewString(),
		Name:           "Consultation",
		CounterNumber:  "3",
		AvgServiceTime: avgMinutes,
		Active:         true,
	}
}

func TestJoinQueuePositionsAndWaits(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	service := testService(10)
	st.addService(service)
	admission := NewAdmission(st, LenientPhonePolicy)

	phones := []string{"+250788000001", "+250788000002", "+250788000003"}
	for i, phone := range phones {
		result, err := admission.JoinQueue(ctx, service.ServiceID, phone)
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		wantPosition := i + 1
		if result.Position != wantPosition {
			t.Fatalf("expected position %d, got %d", wantPosition, result.Position)
		}
		if result.EstimatedWait != wantPosition*10 {
			t.Fatalf("expected wait %d, got %d", wantPosition*10, result.EstimatedWait)
		}
		if result.QueueNumber != int64(wantPosition) {
			t.Fatalf("expected queue number %d, got %d", wantPosition, result.QueueNumber)
		}
		if result.ServiceName != service.Name || result.Counter != service.CounterNumber {
			t.Fatalf("unexpected service info: %+v", result)
		}
	}
}

func TestJoinQueueValidation(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	service := testService(10)
	st.addService(service)
	admission := NewAdmission(st, LenientPhonePolicy)

	if _, err := admission.JoinQueue(ctx, "", "+250788000001"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := admission.JoinQueue(ctx, service.ServiceID, "  "); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields for blank phone, got %v", err)
	}
	if _, err := admission.JoinQueue(ctx, service.ServiceID, "12345"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	if _, err := admission.JoinQueue(ctx, uuid.NewString(), "+250788000001"); !errors.Is(err, store.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}

	inactive := testService(5)
	inactive.Active = false
	st.addService(inactive)
	if _, err := admission.JoinQueue(ctx, inactive.ServiceID, "+250788000001"); !errors.Is(err, store.ErrServiceInactive) {
		t.Fatalf("expected ErrServiceInactive, got %v", err)
	}
}

func TestStatusTracksQueueMovement(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	service := testService(10)
	st.addService(service)
	admission := NewAdmission(st, LenientPhonePolicy)
	cycle := NewCycle(st)

	first, err := admission.JoinQueue(ctx, service.ServiceID, "+250788000001")
	if err != nil {
		t.Fatalf("join first: %v", err)
	}
	second, err := admission.JoinQueue(ctx, service.ServiceID, "+250788000002")
	if err != nil {
		t.Fatalf("join second: %v", err)
	}

	status, err := admission.Status(ctx, second.TicketID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != models.StatusWaiting || status.Position != 2 {
		t.Fatalf("expected waiting at position 2, got %s position %d", status.Status, status.Position)
	}

	if _, err := cycle.CallNext(ctx, service.ServiceID); err != nil {
		t.Fatalf("call next: %v", err)
	}

	status, err = admission.Status(ctx, first.TicketID)
	if err != nil {
		t.Fatalf("status after call: %v", err)
	}
	if status.Status != models.StatusServing || status.Position != 0 {
		t.Fatalf("expected serving with no position, got %s position %d", status.Status, status.Position)
	}

	status, err = admission.Status(ctx, second.TicketID)
	if err != nil {
		t.Fatalf("status of second: %v", err)
	}
	if status.Position != 1 {
		t.Fatalf("expected second ticket promoted to position 1, got %d", status.Position)
	}

	if _, err := admission.Status(ctx, uuid.NewString()); !errors.Is(err, store.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestNowServingProjection(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	service := testService(10)
	st.addService(service)
	admission := NewAdmission(st, LenientPhonePolicy)
	cycle := NewCycle(st)

	serving, err := admission.NowServing(ctx, service.ServiceID)
	if err != nil {
		t.Fatalf("now serving empty: %v", err)
	}
	if serving.NowServing != nil || serving.WaitingCount != 0 {
		t.Fatalf("expected empty projection, got %+v", serving)
	}

	if _, err := admission.JoinQueue(ctx, service.ServiceID, "+250788000001"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := admission.JoinQueue(ctx, service.ServiceID, "+250788000002"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := cycle.CallNext(ctx, service.ServiceID); err != nil {
		t.Fatalf("call next: %v", err)
	}

	serving, err = admission.NowServing(ctx, service.ServiceID)
	if err != nil {
		t.Fatalf("now serving: %v", err)
	}
	if serving.NowServing == nil || *serving.NowServing != 1 {
		t.Fatalf("expected now serving number 1, got %+v", serving.NowServing)
	}
	if serving.WaitingCount != 1 {
		t.Fatalf("expected 1 waiting, got %d", serving.WaitingCount)
	}
}
