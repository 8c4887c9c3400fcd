package inmemory

import (
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
)

type RepoManager struct {
	orderRepository domain.OrderRepository
}

func NewRepoManager() ports.RepoManager {
	return &RepoManager{
		orderRepository: NewOrderRepositoryImpl(),
	}
}

func (d *RepoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *RepoManager) Close() {}
