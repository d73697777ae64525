// Package auth provides credential handling for tutormate.
//
// # Credential Contract
//
// Passwords are stored only as salted bcrypt verifiers:
//
//	svc := auth.NewService(store, logger)
//	user, err := svc.Register(ctx, username, password, displayName)
//	user, err = svc.Authenticate(ctx, username, password)
//
// Authenticate returns the single ErrInvalidCredentials for both unknown
// usernames and wrong passwords, and performs a dummy bcrypt comparison
// on the missing-user path, so responses and timing do not reveal which
// usernames exist.
//
// # API Tokens
//
// JSON API clients authenticate with HS256 JWTs signed with the
// configured secret:
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate(username, 24*time.Hour)
//	username, err = verifier.Verify(token)
//
// Browser clients use cookie sessions instead (see internal/webui).
package auth
