package ports

import (
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
)

// RepoManager groups the repositories of one storage backend.
type RepoManager interface {
	OrderRepository() domain.OrderRepository

	Close()
}
