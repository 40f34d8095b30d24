package collector

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"

	"github.com/basislager/dstcrawl/collector/clients"
	"github.com/basislager/dstcrawl/model"
)

// The gateway answers with "Userprofile not found ..." for profiles that
// never existed and with a parameter-validation error for deleted ones.
// Both shapes mean the same thing for the crawl: the user is gone.
var deletedUserPrefixes = []string{
	"Userprofile not found",
	"One or more parameter values are not valid.",
}

func isDeletedUserError(err error) bool {
	var gqlErr *clients.GraphQLError
	if !errors.As(err, &gqlErr) {
		return false
	}
	for _, prefix := range deletedUserPrefixes {
		if strings.HasPrefix(gqlErr.Message(), prefix) {
			return true
		}
	}
	return false
}

// UserOption customizes a user lookup.
type UserOption func(*userFetch)

type userFetch struct {
	relationships bool
}

// WithRelationships additionally fetches the follow graph and attaches it
// to the returned user.
func WithRelationships() UserOption {
	return func(f *userFetch) { f.relationships = true }
}

type legacyProfileData struct {
	GetCommunityMemberPublic struct {
		Name            string `json:"name"`
		MemberID        string `json:"memberId"`
		MemberCreatedAt string `json:"memberCreatedAt"`
	} `json:"getCommunityMemberPublic"`
}

// GetUser resolves a legacy numeric ID to a user profile. Vanished
// profiles are not errors: they come back as deleted users whose deletion
// stamp is the first one ever observed, so repeated crawls do not let it
// drift. Results are memoized for the lifetime of the API instance, and
// merged into the store when one is configured, so the caller always
// receives a storage-identity-consistent object.
func (a *API) GetUser(ctx context.Context, legacyID int64, opts ...UserOption) (*model.User, error) {
	fetch := userFetch{relationships: a.expandRelationships}
	for _, opt := range opts {
		opt(&fetch)
	}

	if entry, ok := a.users.Get(legacyID); ok {
		// A cached entry without relationships does not satisfy a
		// relationships request.
		if !fetch.relationships || entry.relationships {
			return entry.user, nil
		}
	}

	user, err := a.fetchUser(ctx, legacyID)
	if err != nil {
		return nil, err
	}

	if fetch.relationships && user.ObjectID != nil {
		followees, followers, err := a.GetUserRelationships(ctx, user)
		if err != nil {
			return nil, err
		}
		user.Followees = followees
		user.Followers = followers
		if a.store != nil {
			if err := a.store.MergeRelationships(user, followees, followers); err != nil {
				return nil, err
			}
		}
	} else if a.store != nil {
		if err := a.store.MergeUsers(user); err != nil {
			return nil, err
		}
	}

	a.users.Add(legacyID, userCacheEntry{user: user, relationships: fetch.relationships})
	return user, nil
}

// fetchUser retrieves the profile from the gateway and classifies vanished
// profiles as deleted users.
func (a *API) fetchUser(ctx context.Context, legacyID int64) (*model.User, error) {
	var data legacyProfileData
	err := a.gql.Execute(ctx, clients.QueryLegacyProfile, map[string]interface{}{
		"legacyMemberId": legacyID,
	}, &data)
	if err != nil {
		if !isDeletedUserError(err) {
			return nil, errors.Wrapf(err, "fetch user %d", legacyID)
		}
		return a.deletedUser(legacyID)
	}

	profile := data.GetCommunityMemberPublic
	registered, err := dateparse.ParseAny(profile.MemberCreatedAt)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingField, "memberCreatedAt of user %d: %v", legacyID, err)
	}
	objectID := profile.MemberID
	return model.NewUser(legacyID, &objectID, profile.Name, registered.UTC()), nil
}

// deletedUser builds the deleted-user record, reusing a stored deletion
// stamp when one exists.
func (a *API) deletedUser(legacyID int64) (*model.User, error) {
	deleted := time.Now().UTC().Truncate(time.Second)
	if a.store != nil {
		stored, err := a.store.UserDeletedAt(legacyID)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			deleted = *stored
		}
	}
	return model.NewDeletedUser(legacyID, deleted), nil
}

type relationshipsData struct {
	GetMemberRelationshipsPublic struct {
		Follower  []relationshipEntry `json:"follower"`
		Followees []relationshipEntry `json:"followees"`
	} `json:"getMemberRelationshipsPublic"`
}

type relationshipEntry struct {
	Member struct {
		LegacyID        int64  `json:"legacyId"`
		MemberID        string `json:"memberId"`
		Name            string `json:"name"`
		MemberCreatedAt string `json:"memberCreatedAt"`
	} `json:"member"`
}

// GetUserRelationships fetches both directions of the follow graph via the
// user's gateway ID. The returned stubs carry profile basics only, without
// recursive relationship expansion.
func (a *API) GetUserRelationships(ctx context.Context, user *model.User) (followees, followers []*model.User, err error) {
	if user.ObjectID == nil {
		return nil, nil, errors.Errorf("user %d has no gateway ID", user.ID)
	}

	var data relationshipsData
	err = a.gql.Execute(ctx, clients.QueryMemberRelationships, map[string]interface{}{
		"memberId": *user.ObjectID,
	}, &data)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "fetch relationships of user %d", user.ID)
	}

	stub := func(e relationshipEntry) (*model.User, error) {
		registered, err := dateparse.ParseAny(e.Member.MemberCreatedAt)
		if err != nil {
			return nil, errors.Wrapf(ErrMissingField, "memberCreatedAt of member %s: %v", e.Member.MemberID, err)
		}
		objectID := e.Member.MemberID
		return model.NewUser(e.Member.LegacyID, &objectID, e.Member.Name, registered.UTC()), nil
	}

	for _, e := range data.GetMemberRelationshipsPublic.Followees {
		u, err := stub(e)
		if err != nil {
			return nil, nil, err
		}
		followees = append(followees, u)
	}
	for _, e := range data.GetMemberRelationshipsPublic.Follower {
		u, err := stub(e)
		if err != nil {
			return nil, nil, err
		}
		followers = append(followers, u)
	}
	return followees, followers, nil
}
