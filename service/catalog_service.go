package service

import (
	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
)

// CatalogService 提供只读的静态目录，测试可直接注入 fixture。
type CatalogService struct {
	catalog  entity.Catalog
	models   map[string]entity.ModelOption
	datasets map[string]entity.DatasetOption
}

func NewCatalogService(catalog entity.Catalog) *CatalogService {
	s := &CatalogService{
		catalog:  catalog,
		models:   make(map[string]entity.ModelOption, len(catalog.Models)),
		datasets: make(map[string]entity.DatasetOption, len(catalog.Datasets)),
	}
	for _, m := range catalog.Models {
		s.models[m.ID] = m
	}
	for _, d := range catalog.Datasets {
		s.datasets[d.ID] = d
	}
	return s
}

func (s *CatalogService) Models() []entity.ModelOption {
	return append([]entity.ModelOption(nil), s.catalog.Models...)
}

func (s *CatalogService) Datasets() []entity.DatasetOption {
	return append([]entity.DatasetOption(nil), s.catalog.Datasets...)
}

func (s *CatalogService) SeedTasks() []entity.FineTuneTask {
	return append([]entity.FineTuneTask(nil), s.catalog.SeedTasks...)
}

func (s *CatalogService) Metrics() []entity.TrainingMetric {
	return append([]entity.TrainingMetric(nil), s.catalog.Metrics...)
}

func (s *CatalogService) FindModel(id string) (entity.ModelOption, bool) {
	m, ok := s.models[id]
	return m, ok
}

func (s *CatalogService) FindDataset(id string) (entity.DatasetOption, bool) {
	d, ok := s.datasets[id]
	return d, ok
}
