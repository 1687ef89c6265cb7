package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"nostrss/internal/broker"
	"nostrss/internal/configstore"
	"nostrss/internal/nostrkey"
	"nostrss/internal/registry"
	"nostrss/pkg/apperror"
	"nostrss/pkg/logger"
)

// Handler is the Control Service contract: one method per RPC in the §6
// method table, each acquiring whatever locking the underlying Scheduler
// and ProfileRegistry already provide for its duration.
type Handler interface {
	State(ctx context.Context, req *StateRequest) (*StateResponse, error)
	FeedsList(ctx context.Context, req *FeedsListRequest) (*FeedsListResponse, error)
	FeedInfo(ctx context.Context, req *FeedInfoRequest) (*FeedInfoResponse, error)
	AddFeed(ctx context.Context, req *AddFeedRequest) (*AddFeedResponse, error)
	DeleteFeed(ctx context.Context, req *DeleteFeedRequest) (*DeleteFeedResponse, error)
	ProfilesList(ctx context.Context, req *ProfilesListRequest) (*ProfilesListResponse, error)
	ProfileInfo(ctx context.Context, req *ProfileInfoRequest) (*ProfileInfoResponse, error)
	AddProfile(ctx context.Context, req *AddProfileRequest) (*AddProfileResponse, error)
	DeleteProfile(ctx context.Context, req *DeleteProfileRequest) (*DeleteProfileResponse, error)
	StartJob(ctx context.Context, req *StartJobRequest) (*StartJobResponse, error)
	StopJob(ctx context.Context, req *StopJobRequest) (*StopJobResponse, error)
}

// Service implements Handler over a live Scheduler and ProfileRegistry,
// persisting through an optional ConfigStore when a request sets save=true.
// A nil Store (or one constructed with empty paths) makes save a no-op,
// matching spec §4.7's "unknown extensions/paths" best-effort contract.
type Service struct {
	Scheduler *broker.Scheduler
	Profiles  *registry.Profiles
	Store     *configstore.Store
	startedAt time.Time
}

// NewService constructs a Service bound to the given collaborators.
func NewService(scheduler *broker.Scheduler, profiles *registry.Profiles, store *configstore.Store) *Service {
	return &Service{
		Scheduler: scheduler,
		Profiles:  profiles,
		Store:     store,
		startedAt: time.Now(),
	}
}

func (s *Service) State(_ context.Context, _ *StateRequest) (*StateResponse, error) {
	feeds := s.Scheduler.ListFeeds()
	text := fmt.Sprintf("nostrss broker: %d feeds armed, %d profiles registered, uptime %s",
		len(feeds), s.Profiles.Count(), time.Since(s.startedAt).Round(time.Second))
	return &StateResponse{State: text}, nil
}

func (s *Service) FeedsList(_ context.Context, _ *FeedsListRequest) (*FeedsListResponse, error) {
	feeds := s.Scheduler.ListFeeds()
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].ID < feeds[j].ID })

	items := make([]FeedItem, 0, len(feeds))
	for _, f := range feeds {
		items = append(items, feedItemFromDomain(f))
	}
	return &FeedsListResponse{Feeds: items}, nil
}

func (s *Service) FeedInfo(_ context.Context, req *FeedInfoRequest) (*FeedInfoResponse, error) {
	f, err := s.Scheduler.GetFeed(req.ID)
	if err != nil {
		return nil, err
	}
	return &FeedInfoResponse{Feed: feedItemFromDomain(f)}, nil
}

func (s *Service) AddFeed(_ context.Context, req *AddFeedRequest) (*AddFeedResponse, error) {
	if err := s.Scheduler.AddFeed(req.Feed.toDomain()); err != nil {
		return nil, err
	}
	if req.Save {
		s.saveFeeds()
	}
	return &AddFeedResponse{}, nil
}

func (s *Service) DeleteFeed(_ context.Context, req *DeleteFeedRequest) (*DeleteFeedResponse, error) {
	if err := s.Scheduler.DeleteFeed(req.ID); err != nil {
		return nil, err
	}
	if req.Save {
		s.saveFeeds()
	}
	return &DeleteFeedResponse{}, nil
}

func (s *Service) ProfilesList(_ context.Context, _ *ProfilesListRequest) (*ProfilesListResponse, error) {
	profiles := s.Profiles.List()
	items := make([]ProfileItem, 0, len(profiles))
	for _, p := range profiles {
		item, err := profileItemFromDomain(p)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidPrivateKey, fmt.Sprintf("profile %q has an unparsable private key", p.ID))
		}
		items = append(items, item)
	}
	return &ProfilesListResponse{Profiles: items}, nil
}

func (s *Service) ProfileInfo(_ context.Context, req *ProfileInfoRequest) (*ProfileInfoResponse, error) {
	p, err := s.Profiles.Get(req.ID)
	if err != nil {
		return nil, translateProfileErr(err, req.ID)
	}
	item, err := profileItemFromDomain(p)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidPrivateKey, fmt.Sprintf("profile %q has an unparsable private key", p.ID))
	}
	return &ProfileInfoResponse{Profile: item}, nil
}

func (s *Service) AddProfile(_ context.Context, req *AddProfileRequest) (*AddProfileResponse, error) {
	p := req.Profile.toDomain()
	if err := p.Validate(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid profile")
	}
	if _, err := nostrkey.ParsePrivateKey(p.PrivateKey); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidPrivateKey, fmt.Sprintf("profile %q has an invalid private key", p.ID))
	}

	if err := s.Profiles.Add(p); err != nil {
		return nil, translateProfileErr(err, p.ID)
	}
	if req.Save {
		s.saveProfiles()
	}
	return &AddProfileResponse{}, nil
}

func (s *Service) DeleteProfile(_ context.Context, req *DeleteProfileRequest) (*DeleteProfileResponse, error) {
	if err := s.Profiles.Delete(req.ID); err != nil {
		return nil, translateProfileErr(err, req.ID)
	}
	if req.Save {
		s.saveProfiles()
	}
	return &DeleteProfileResponse{}, nil
}

// StartJob/StopJob: reserved in spec.md §4.6/§9; implemented here as
// pause/resume of the feed's timer only (decision recorded in DESIGN.md).
func (s *Service) StartJob(_ context.Context, req *StartJobRequest) (*StartJobResponse, error) {
	if err := s.Scheduler.StartJob(req.FeedID); err != nil {
		return nil, err
	}
	return &StartJobResponse{}, nil
}

func (s *Service) StopJob(_ context.Context, req *StopJobRequest) (*StopJobResponse, error) {
	if err := s.Scheduler.StopJob(req.FeedID); err != nil {
		return nil, err
	}
	return &StopJobResponse{}, nil
}

func (s *Service) saveFeeds() {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveFeeds(s.Scheduler.ListFeeds()); err != nil {
		logger.Log.Error("save=true requested but persisting feeds failed; live state unchanged", "error", err)
	}
}

func (s *Service) saveProfiles() {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveProfiles(s.Profiles.List()); err != nil {
		logger.Log.Error("save=true requested but persisting profiles failed; live state unchanged", "error", err)
	}
}

func translateProfileErr(err error, id string) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return apperror.New(apperror.CodeNotFound, fmt.Sprintf("profile %q not found", id))
	case errors.Is(err, registry.ErrAlreadyExists):
		return apperror.New(apperror.CodeAlreadyExists, fmt.Sprintf("profile %q already exists", id))
	case errors.Is(err, registry.ErrForbidden):
		return apperror.New(apperror.CodePermissionDenied, "the default profile cannot be deleted")
	default:
		return err
	}
}
