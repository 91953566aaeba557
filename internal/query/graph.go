package query

import "github.com/debemdeboas/microsites/internal/model"

type Mutation string

const (
	CreateProject    Mutation = "createProject"
	UpdateProject    Mutation = "updateProject"
	DeleteProject    Mutation = "deleteProject"
	SaveProjectState Mutation = "saveProjectState"
	PublishProject   Mutation = "publishProject"
	UnpublishProject Mutation = "unpublishProject"
	SaveProfile      Mutation = "saveCallerUserProfile"
	AssignRole       Mutation = "assignCallerUserRole"
)

// Effects lists the kinds a mutation invalidates and the kinds it purges.
// Invalidated entries are refetched on their next read. Purged entries are
// dropped along with their values.
type Effects struct {
	Invalidate []Kind
	Purge      []Kind
}

// Graph is the full dependency table between mutations and cached reads.
// Public kinds are never invalidated by publish or unpublish; public readers
// observe status changes because their entries are refetched on every read.
var Graph = map[Mutation]Effects{
	CreateProject: {
		Invalidate: []Kind{KindUserProjects},
	},
	UpdateProject: {
		Invalidate: []Kind{KindUserProjects, KindProject},
	},
	DeleteProject: {
		Invalidate: []Kind{KindUserProjects},
		Purge:      []Kind{KindProject, KindPublicProject},
	},
	SaveProjectState: {
		Invalidate: []Kind{KindProject, KindUserProjects},
	},
	PublishProject: {
		Invalidate: []Kind{KindProject, KindUserProjects},
	},
	UnpublishProject: {
		Invalidate: []Kind{KindProject, KindUserProjects},
	},
	SaveProfile: {
		Invalidate: []Kind{KindCurrentUserProfile, KindUserProfile},
	},
	AssignRole: {
		Invalidate: []Kind{KindCallerRole, KindCallerAdmin},
	},
}

// Target carries the identities a mutation touched. Key turns it into the
// concrete key of a kind.
type Target struct {
	Principal model.UserID
	Owner     model.UserID
	Project   model.ProjectID
	User      model.UserID
}

func (t Target) Key(kind Kind) Key {
	switch kind {
	case KindProject:
		return ProjectKey(t.Principal, t.Project)
	case KindUserProjects:
		return UserProjectsKey(t.Principal, t.Owner)
	case KindPublicProject:
		return PublicProjectKey(t.Project)
	case KindPublicProjects:
		return PublicProjectsKey()
	case KindCurrentUserProfile:
		return CurrentUserProfileKey(t.Principal)
	case KindUserProfile:
		return UserProfileKey(t.Principal, t.User)
	case KindCallerRole:
		return CallerRoleKey(t.Principal)
	case KindCallerAdmin:
		return CallerAdminKey(t.Principal)
	}
	return Key{Kind: kind, Principal: t.Principal}
}

// Apply performs the effects of m on the keys derived from t.
func (c *Cache) Apply(m Mutation, t Target) {
	eff, ok := Graph[m]
	if !ok {
		queryLogger.Warn().Str("mutation", string(m)).Msg("Mutation has no declared effects")
		return
	}

	keys := make([]Key, 0, len(eff.Invalidate))
	for _, kind := range eff.Invalidate {
		keys = append(keys, t.Key(kind))
	}
	c.Invalidate(keys...)

	purge := make([]Key, 0, len(eff.Purge))
	for _, kind := range eff.Purge {
		purge = append(purge, t.Key(kind))
	}
	c.Remove(purge...)

	queryLogger.Debug().
		Str("mutation", string(m)).
		Int("invalidated", len(keys)).
		Int("purged", len(purge)).
		Msg("Applied mutation effects")
}
