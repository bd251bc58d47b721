// Package mocks provides gomock implementations of the session ports.
//
// The mocks are generated with go.uber.org/mock and give tests a fluent API
// for call expectations where the hand-written doubles in mocks/auth are not
// enough (ordering, exact call counts).
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	n := mocks.NewMockNotifier(ctrl)
//	n.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(1)
package mocks

// Generate mocks for the session ports: Notifier, TokenStore, TokenStoreFactory, TokenInspector.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/kb-assistant-web/internal/ports Notifier,TokenStore,TokenStoreFactory,TokenInspector
