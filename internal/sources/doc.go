// Package sources provides read access to the open issues of one repository
// and the ability to comment on them.
//
// Architecture:
//   - IssueSource: pages through open issues, newest-created first, using an
//     opaque cursor. No retries are performed; failures propagate to the caller.
//   - Commenter: posts a comment body on an issue by number.
//
// Current implementations:
//   - GitHubClient: both interfaces over the GitHub REST API (go-github),
//     authenticated with a static token through oauth2.
//
// Errors are classified into the categories of the issues package
// (ErrTransport, ErrAuth, ErrParse) so that callers can decide whether a
// failure aborts a tick or is isolated to one candidate.
package sources
