// Package ssh implements remote.Transport over SSH.
//
// A [Client] keeps one connection per user@host:port for the lifetime of a
// run, dialing lazily with retry. Commands run in their own session; the
// exit status is reported in remote.Result instead of as an error. Uploads
// stream the content to `cat` over the session's stdin, so no SFTP
// subsystem is needed on the target.
//
// Authentication follows the environment's ssh_auth_methods: a private key,
// the local ssh-agent, or a password. When agent forwarding is enabled the
// local agent is forwarded into every session.
//
// Security: Host key verification is disabled by default. Configure
// HostKeyCallback (for example with knownhosts.New) to verify hosts.
package ssh
