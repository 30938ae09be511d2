/*
Package lectern provides a client SDK for the Lectern course-management API.

# Overview

The package is organized around two main types:

  - Client: the HTTP transport; performs the unauthenticated auth exchanges
  - Manager: owns the session and provides authenticated operations with
    automatic token refresh

Create a Client for the API endpoint, then a Manager over it and a durable
store:

	client := lectern.NewClient("https://api.lectern.example.com")

	st, err := sqlite.NewStore(statePath)
	if err != nil {
		log.Fatal(err)
	}
	if err := st.ApplyMigrations(); err != nil {
		log.Fatal(err)
	}

	manager := lectern.NewManager(client, st)
	defer manager.Close()

	// Restore a persisted session (no network calls)
	session := manager.Initialize(ctx)

	if !session.Authenticated {
		session, err = manager.Login(ctx, email, password)
		if err != nil {
			log.Fatal(err)
		}
	}

	// Authenticated operations refresh tokens as needed
	page, err := manager.ListCourses(ctx, lectern.ListCoursesParams{Limit: 9})

# Session Lifecycle

The Manager is the single source of truth for authentication state. The
session moves between exactly two states: anonymous and authenticated.

 1. Login and Register replace the whole session atomically on success and
    leave it untouched on failure.
 2. A successful refresh replaces the token pair and nothing else; profile
    updates replace the user and nothing else.
 3. An explicit Logout, an unrecoverable refresh failure, or a 401 from any
    authenticated request all collapse to the same anonymous state.

Every state that survives a restart goes through the store: login persists,
logout clears, Initialize restores.

# Token Renewal

Access tokens are renewed proactively, five minutes before their expiry
(RenewalLead). When the timer fires it refreshes and re-arms itself for the
new token, so renewal continues for as long as the session lives. Tokens
that are already inside the lead window get no timer; the next EnsureValid
call refreshes synchronously instead.

Reactive and proactive refreshes can race. The Manager collapses overlapping
refresh attempts into a single exchange: whoever starts first wins, everyone
else waits for and adopts the outcome. Refresh tokens are single-use
server-side, so a duplicate exchange would strand one caller with a dead
token.

Refresh failures are never surfaced as errors. A session whose token pair
cannot be renewed is ended, and the caller observes that through a false
return from EnsureValid, the ErrUnauthorized sentinel, or the subscription
signal.

# The Authenticated Signal

Routing and UI layers observe the session through Subscribe:

	authed, cancel := manager.Subscribe()
	defer cancel()

	for flag := range authed {
		if !flag {
			// redirect to the login view
		}
	}

The channel carries only transitions and only the latest value; a slow
consumer never blocks session maintenance.

# Error Handling

Only user-initiated operations return transport errors to their caller:

  - Login/Register return *APIError verbatim (see IsInvalidCredentials)
  - Course and profile operations return *APIError for server rejections
  - Any 401 is converted to ErrUnauthorized after the session is torn down

Session-maintenance failures (background renewal, refresh) are absorbed and
logged; their only observable effect is the session ending.
*/
package lectern
