// Package mocks provides gomock implementations of the portal's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockDataAPI(ctrl)
//	api.EXPECT().Get(gomock.Any(), "getExams", gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for DataAPI interface from internal/ports package.
// This creates MockDataAPI with methods: Get, Post
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=data_api_mock.go github.com/auy/thinkers-portal/internal/ports DataAPI

// Generate mock for AllowlistStore interface from internal/ports package.
// This creates MockAllowlistStore with methods: Lookup, List, Upsert, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=allowlist_store_mock.go github.com/auy/thinkers-portal/internal/ports AllowlistStore
