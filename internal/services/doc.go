// Package services holds the Arena domain services: thin typed wrappers over
// the shared HTTP client, one per backend area.
//
// # Services
//
//   - AuthService: token validation, logout, the current user and the Discord
//     code exchange and account linking
//   - PostService: the feed, post creation with attachments, likes
//   - MediaService: uploads and the user's library
//   - TournamentService: listing, registration and withdrawal
//   - EventService: upcoming events and RSVPs
//   - MarketplaceService: listings and purchases
//   - ChatService: rooms, message polling and sending
//   - ProfileService: public profiles, profile edits and avatars
//
// # Retries
//
// Reads are retried with the policy given to New. Writes are sent once unless
// they carry a key that makes a replay harmless: a purchase sends an
// Idempotency-Key header and a chat message a client generated id, so both
// are marked idempotent and retried like reads.
//
// # Errors
//
// Every method returns *apierror.APIError for backend and transport failures.
// Local input checks (an empty chat message, a post without a title) fail with a
// ValidationError before any request is made.
package services
