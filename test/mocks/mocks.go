// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// Regenerate with `go generate ./test/mocks`.
package mocks

//go:generate mockgen -source=../../internal/core/ports/cache.go -destination=cache_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/database.go -destination=database_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/views.go -destination=views_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/recommendations.go -destination=recommendations_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/preferences.go -destination=preferences_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/export.go -destination=export_mock.go -package=mocks
