// Package mocks provides test doubles for the lead store.
package mocks

import (
	"context"

	model "github.com/sells-group/outreach-cli/internal/model"
	store "github.com/sells-group/outreach-cli/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// InsertLead provides a mock function with given fields: ctx, phone, name, status
func (_m *MockStore) InsertLead(ctx context.Context, phone string, name *string, status model.LeadStatus) (*model.Lead, error) {
	ret := _m.Called(ctx, phone, name, status)

	if len(ret) == 0 {
		panic("no return value specified for InsertLead")
	}

	var r0 *model.Lead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, *string, model.LeadStatus) (*model.Lead, error)); ok {
		return rf(ctx, phone, name, status)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, *string, model.LeadStatus) *model.Lead); ok {
		r0 = rf(ctx, phone, name, status)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Lead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, *string, model.LeadStatus) error); ok {
		r1 = rf(ctx, phone, name, status)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateLead provides a mock function with given fields: ctx, id, upd
func (_m *MockStore) UpdateLead(ctx context.Context, id string, upd store.LeadUpdate) error {
	ret := _m.Called(ctx, id, upd)

	if len(ret) == 0 {
		panic("no return value specified for UpdateLead")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, store.LeadUpdate) error); ok {
		r0 = rf(ctx, id, upd)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetLead provides a mock function with given fields: ctx, id
func (_m *MockStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetLead")
	}

	var r0 *model.Lead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Lead, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Lead); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Lead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListLeads provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListLeads")
	}

	var r0 []model.Lead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.LeadFilter) ([]model.Lead, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.LeadFilter) []model.Lead); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Lead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.LeadFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// PendingLeads provides a mock function with given fields: ctx
func (_m *MockStore) PendingLeads(ctx context.Context) ([]model.Lead, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for PendingLeads")
	}

	var r0 []model.Lead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]model.Lead, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) []model.Lead); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Lead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// LeadStats provides a mock function with given fields: ctx
func (_m *MockStore) LeadStats(ctx context.Context) (*model.LeadStats, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for LeadStats")
	}

	var r0 *model.LeadStats
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*model.LeadStats, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *model.LeadStats); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.LeadStats)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
