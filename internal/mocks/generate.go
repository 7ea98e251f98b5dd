// Package mocks provides mock implementations for testing the session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	exchanger := mocks.NewMockTokenExchanger(ctrl)
//	exchanger.EXPECT().Exchange(gomock.Any(), "code").Return(tokens, nil)
package mocks

// Generate mocks for the session port interfaces from internal/ports.
// This creates MockAuthorizer, MockTokenExchanger, MockTokenStore, and
// MockProfileLoader.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ports_mock.go github.com/openhrms/fieldlink/internal/ports Authorizer,TokenExchanger,TokenStore,ProfileLoader
