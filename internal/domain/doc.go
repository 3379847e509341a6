// Package domain contains the core types shared across services and
// repositories: customers, service insights, per-channel dispatch records,
// and link-open source metrics.
//
// Types here carry no behavior beyond small helpers; all business logic
// lives in internal/service/.
package domain
