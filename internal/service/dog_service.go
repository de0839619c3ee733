package service

import (
	"context"
	"strconv"
	"time"

	"github.com/apmoronez/dogbot/internal/metrics"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/store"
	"go.uber.org/zap"
)

// DogRepository is the subset of the dog store the service drives
type DogRepository interface {
	Create(ctx context.Context, tenant string, patch model.Patch) (*model.Dog, error)
	Update(ctx context.Context, tenant string, id int64, patch model.Patch) (*model.Dog, error)
	Delete(ctx context.Context, tenant string, id int64) error
	GetByID(ctx context.Context, tenant string, id int64) (*model.Dog, error)
	GetAll(ctx context.Context, tenant string) ([]*model.Dog, error)
	GetAllNames(ctx context.Context, tenant string) ([]string, error)
	GetByIndexValuesUnion(ctx context.Context, tenant, field string, values []string) ([]*model.Dog, error)
	GetByFilterIntersection(ctx context.Context, tenant string, filters []model.Filter) ([]*model.Dog, error)
	GetRandom(ctx context.Context, tenant string, filters []model.Filter) (*model.Dog, error)
	GetActiveOnDate(ctx context.Context, tenant string, date time.Time) ([]*model.Dog, error)
	FindByName(ctx context.Context, tenant, name string) ([]*model.Dog, error)
	AddPhoto(ctx context.Context, tenant string, id int64, url string) error
	RemovePhoto(ctx context.Context, tenant string, id int64, url string) error
	HasPhoto(ctx context.Context, tenant string, id int64, url string) (bool, error)
	ListPhotos(ctx context.Context, tenant string, id int64) ([]string, error)
}

// DogService is the caller-facing layer over the dog store. It serializes
// writes per dog, logs mutations and records operation metrics.
type DogService struct {
	repo    DogRepository
	locks   *KeyedLock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDogService creates a new dog service
func NewDogService(repo DogRepository, m *metrics.Metrics, logger *zap.Logger) *DogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DogService{
		repo:    repo,
		locks:   NewKeyedLock(),
		metrics: m,
		logger:  logger,
	}
}

func (s *DogService) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, time.Since(start), err)
	}
}

func (s *DogService) observeResult(operation string, n int) {
	if s.metrics != nil {
		s.metrics.RecordQueryResult(operation, n)
	}
}

func (s *DogService) lockDog(tenant string, id int64) func() {
	return s.locks.Lock(tenant + "/" + strconv.FormatInt(id, 10))
}

// Create stores a new dog
func (s *DogService) Create(ctx context.Context, tenant string, patch model.Patch) (dog *model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("create", start, err) }()

	dog, err = s.repo.Create(ctx, tenant, patch)
	if err != nil {
		s.logger.Warn("Dog create failed",
			zap.String("tenant_id", tenant),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Dog created",
		zap.String("tenant_id", tenant),
		zap.Int64("dog_id", dog.ID),
		zap.String("name", dog.Name()))
	return dog, nil
}

// Update applies a partial update while holding the dog's lock
func (s *DogService) Update(ctx context.Context, tenant string, id int64, patch model.Patch) (dog *model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("update", start, err) }()

	unlock := s.lockDog(tenant, id)
	defer unlock()

	dog, err = s.repo.Update(ctx, tenant, id, patch)
	if err != nil {
		if dog != nil {
			s.logger.Warn("Dog updated but name registry cleanup failed",
				zap.String("tenant_id", tenant),
				zap.Int64("dog_id", id),
				zap.Error(err))
			return dog, err
		}
		s.logger.Warn("Dog update failed",
			zap.String("tenant_id", tenant),
			zap.Int64("dog_id", id),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Dog updated",
		zap.String("tenant_id", tenant),
		zap.Int64("dog_id", id),
		zap.Int("fields", len(patch)))
	return dog, nil
}

// Delete removes a dog while holding its lock
func (s *DogService) Delete(ctx context.Context, tenant string, id int64) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()

	unlock := s.lockDog(tenant, id)
	defer unlock()

	if err = s.repo.Delete(ctx, tenant, id); err != nil {
		s.logger.Warn("Dog delete failed",
			zap.String("tenant_id", tenant),
			zap.Int64("dog_id", id),
			zap.Error(err))
		return err
	}

	s.logger.Info("Dog deleted",
		zap.String("tenant_id", tenant),
		zap.Int64("dog_id", id))
	return nil
}

// Get loads one dog
func (s *DogService) Get(ctx context.Context, tenant string, id int64) (dog *model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("get", start, err) }()

	return s.repo.GetByID(ctx, tenant, id)
}

// List returns every dog of the tenant
func (s *DogService) List(ctx context.Context, tenant string) (dogs []*model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("list", start, err) }()

	dogs, err = s.repo.GetAll(ctx, tenant)
	if err == nil {
		s.observeResult("list", len(dogs))
	}
	return dogs, err
}

// Names returns the distinct dog names in use
func (s *DogService) Names(ctx context.Context, tenant string) (names []string, err error) {
	start := time.Now()
	defer func() { s.observe("names", start, err) }()

	return s.repo.GetAllNames(ctx, tenant)
}

// FindByName returns dogs whose name matches ignoring case
func (s *DogService) FindByName(ctx context.Context, tenant, name string) (dogs []*model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("find_by_name", start, err) }()

	dogs, err = s.repo.FindByName(ctx, tenant, name)
	if err == nil {
		s.observeResult("find_by_name", len(dogs))
	}
	return dogs, err
}

// AnyOf returns dogs whose field equals any of values
func (s *DogService) AnyOf(ctx context.Context, tenant, field string, values []string) (dogs []*model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("union", start, err) }()

	dogs, err = s.repo.GetByIndexValuesUnion(ctx, tenant, field, values)
	if err == nil {
		s.observeResult("union", len(dogs))
	}
	return dogs, err
}

// Search returns dogs matching every filter
func (s *DogService) Search(ctx context.Context, tenant string, filters []model.Filter) (dogs []*model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("intersection", start, err) }()

	dogs, err = s.repo.GetByFilterIntersection(ctx, tenant, filters)
	if err == nil {
		s.observeResult("intersection", len(dogs))
	}
	return dogs, err
}

// Random picks one dog, optionally among those matching filters. A nil dog
// means nothing matched.
func (s *DogService) Random(ctx context.Context, tenant string, filters []model.Filter) (dog *model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("random", start, err) }()

	return s.repo.GetRandom(ctx, tenant, filters)
}

// Here returns the dogs expected on date. With excludeDeparted, dogs leaving
// that day are dropped.
func (s *DogService) Here(ctx context.Context, tenant string, date time.Time, excludeDeparted bool) (dogs []*model.Dog, err error) {
	start := time.Now()
	defer func() { s.observe("here", start, err) }()

	dogs, err = s.repo.GetActiveOnDate(ctx, tenant, date)
	if err != nil {
		return nil, err
	}
	if excludeDeparted {
		dogs = store.ExcludeDepartedOn(dogs, date)
	}
	s.observeResult("here", len(dogs))
	return dogs, nil
}

// AddPhoto attaches a photo URL to a dog that exists
func (s *DogService) AddPhoto(ctx context.Context, tenant string, id int64, url string) (err error) {
	start := time.Now()
	defer func() { s.observe("add_photo", start, err) }()

	unlock := s.lockDog(tenant, id)
	defer unlock()

	// a photo set for a dog that does not exist would never be cleaned up
	if _, err = s.repo.GetByID(ctx, tenant, id); err != nil {
		return err
	}
	if err = s.repo.AddPhoto(ctx, tenant, id, url); err != nil {
		return err
	}

	s.logger.Info("Dog photo added",
		zap.String("tenant_id", tenant),
		zap.Int64("dog_id", id),
		zap.String("url", url))
	return nil
}

// RemovePhoto detaches a photo URL
func (s *DogService) RemovePhoto(ctx context.Context, tenant string, id int64, url string) (err error) {
	start := time.Now()
	defer func() { s.observe("remove_photo", start, err) }()

	unlock := s.lockDog(tenant, id)
	defer unlock()

	if err = s.repo.RemovePhoto(ctx, tenant, id, url); err != nil {
		return err
	}

	s.logger.Info("Dog photo removed",
		zap.String("tenant_id", tenant),
		zap.Int64("dog_id", id),
		zap.String("url", url))
	return nil
}

// HasPhoto reports whether url is one of the dog's photos
func (s *DogService) HasPhoto(ctx context.Context, tenant string, id int64, url string) (bool, error) {
	return s.repo.HasPhoto(ctx, tenant, id, url)
}

// Photos lists the dog's photo URLs
func (s *DogService) Photos(ctx context.Context, tenant string, id int64) ([]string, error) {
	return s.repo.ListPhotos(ctx, tenant, id)
}
