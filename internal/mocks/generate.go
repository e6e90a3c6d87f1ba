// Package mocks holds generated gomock mocks for the ports in internal/core.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=schedule_store_mock.go github.com/checkernet/probed/internal/core ScheduleStore
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=mutex_store_mock.go github.com/checkernet/probed/internal/core MutexStore
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=provider_lister_mock.go github.com/checkernet/probed/internal/core ProviderLister
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=tx_enqueuer_mock.go github.com/checkernet/probed/internal/core TxEnqueuer
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=queue_introspector_mock.go github.com/checkernet/probed/internal/core QueueIntrospector
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=handler_mock.go github.com/checkernet/probed/internal/core Handler
