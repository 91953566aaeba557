// Package query is a keyed, invalidatable cache of remote reads. Concurrent
// readers of one key share a single fetch, and mutations invalidate the keys
// declared for them in Graph.
package query

import (
	"strings"

	"github.com/debemdeboas/microsites/internal/model"
)

type Kind string

const (
	KindProject            Kind = "project"
	KindUserProjects       Kind = "userProjects"
	KindPublicProject      Kind = "publicProject"
	KindPublicProjects     Kind = "publicProjects"
	KindCurrentUserProfile Kind = "currentUserProfile"
	KindUserProfile        Kind = "userProfile"
	KindCallerRole         Kind = "callerRole"
	KindCallerAdmin        Kind = "callerAdmin"
)

// Public kinds are shared by every principal and carry no scoping identity.
func (k Kind) Public() bool {
	return k == KindPublicProject || k == KindPublicProjects
}

// Key identifies one cache entry. Principal is the reading identity and is
// empty exactly for public kinds. ID is the project id or user id the entry
// is about, when the kind has one.
type Key struct {
	Kind      Kind
	Principal model.UserID
	ID        string
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	if k.Principal != "" {
		b.WriteString("@")
		b.WriteString(string(k.Principal))
	}
	if k.ID != "" {
		b.WriteString(":")
		b.WriteString(k.ID)
	}
	return b.String()
}

func ProjectKey(principal model.UserID, id model.ProjectID) Key {
	return Key{Kind: KindProject, Principal: principal, ID: id.String()}
}

func UserProjectsKey(principal, owner model.UserID) Key {
	return Key{Kind: KindUserProjects, Principal: principal, ID: string(owner)}
}

func PublicProjectKey(id model.ProjectID) Key {
	return Key{Kind: KindPublicProject, ID: id.String()}
}

func PublicProjectsKey() Key {
	return Key{Kind: KindPublicProjects}
}

func CurrentUserProfileKey(principal model.UserID) Key {
	return Key{Kind: KindCurrentUserProfile, Principal: principal}
}

func UserProfileKey(principal, user model.UserID) Key {
	return Key{Kind: KindUserProfile, Principal: principal, ID: string(user)}
}

func CallerRoleKey(principal model.UserID) Key {
	return Key{Kind: KindCallerRole, Principal: principal}
}

func CallerAdminKey(principal model.UserID) Key {
	return Key{Kind: KindCallerAdmin, Principal: principal}
}
