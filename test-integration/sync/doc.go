// Package integration runs gitsorted end to end against a disposable Postgres,
// a fake GitHub API and a fake chat webhook.
package integration
