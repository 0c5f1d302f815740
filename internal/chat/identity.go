package chat

import (
	"fmt"
	"strings"
	"time"

	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/model"
	"dormlink-backend/internal/session"

	"github.com/google/uuid"
)

// Resolver derives a stable participant identity for each connection:
// authenticated tenant, admin operator, or anonymous guest. A tenant or
// admin token that fails verification downgrades the connection to guest
// instead of rejecting it, so the public widget keeps working.
type Resolver struct {
	now func() time.Time
}

func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// JoinGrant is the resolver's verdict on a join_private_chat event: who
// the participant is, which room they land in, and the creation metadata
// that authorizes the registry to build the room if it is absent.
type JoinGrant struct {
	Identity     Identity
	RoomID       string
	SessionToken string
	Meta         CreateMeta
}

func (r *Resolver) ResolvePrivate(authToken, name, presentedToken string) (JoinGrant, error) {
	name = strings.TrimSpace(name)

	if authToken != "" {
		if claims, err := internaljwt.ParseToken(authToken, internaljwt.RoleTenant); err == nil {
			tenantID, _ := claims["id"].(string)
			tenantName, _ := claims["name"].(string)
			if tenantID != "" {
				if tenantName == "" {
					tenantName = name
				}
				return JoinGrant{
					Identity: Identity{Kind: IdentityTenant, ID: tenantID, Name: tenantName},
					RoomID:   TenantRoomID(tenantID),
					Meta: CreateMeta{
						Kind:        model.RoomKindTenant,
						DisplayName: tenantName,
						TenantID:    tenantID,
					},
				}, nil
			}
		}
		// Bad token: fall through to the guest path rather than close the
		// socket.
	}

	if presentedToken != "" {
		if claims, err := session.Verify(presentedToken, r.now()); err == nil {
			guestName := claims.GuestName
			if guestName == "" {
				guestName = name
			}
			return JoinGrant{
				Identity:     Identity{Kind: IdentityGuest, ID: claims.RoomID, Name: guestName, Downgraded: authToken != ""},
				RoomID:       claims.RoomID,
				SessionToken: presentedToken,
				Meta: CreateMeta{
					Kind:        model.RoomKindGuest,
					DisplayName: guestName,
				},
			}, nil
		}
		// An unverifiable session token gets a fresh room, never someone
		// else's.
	}

	roomID := uuid.NewString()
	token, err := session.Sign(roomID, name, r.now())
	if err != nil {
		return JoinGrant{}, fmt.Errorf("mint session token: %w", err)
	}

	return JoinGrant{
		Identity:     Identity{Kind: IdentityGuest, ID: roomID, Name: name, Downgraded: authToken != ""},
		RoomID:       roomID,
		SessionToken: token,
		Meta: CreateMeta{
			Kind:        model.RoomKindGuest,
			DisplayName: name,
		},
	}, nil
}

// ResolveAdmin verifies an operator joining the admin notification
// channel. Unlike the private path there is no room to fall back to, so a
// failed token surfaces as AuthDowngraded and the connection stays a
// plain guest.
func (r *Resolver) ResolveAdmin(authToken, name string) (Identity, *Error) {
	claims, err := internaljwt.ParseToken(authToken, internaljwt.RoleAdmin)
	if err != nil {
		return Identity{}, newError(ErrorCodeAuthDowngraded, "admin token rejected, continuing as guest", err)
	}

	adminID, _ := claims["id"].(string)
	adminName, _ := claims["name"].(string)
	if adminID == "" {
		return Identity{}, newError(ErrorCodeAuthDowngraded, "admin token missing identifier", nil)
	}
	if adminName == "" {
		adminName = strings.TrimSpace(name)
	}

	return Identity{Kind: IdentityAdmin, ID: adminID, Name: adminName}, nil
}

// TenantRoomID is the stable room for an authenticated tenant, so their
// conversation resumes across devices without a browser-held token.
func TenantRoomID(tenantID string) string {
	return "tenant-" + tenantID
}
