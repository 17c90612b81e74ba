// Package keygen generates key material used while provisioning hosts.
//
// [GenerateRSAKeyPair] produces an SSH key pair (PEM private key, OpenSSH
// authorized_keys public key). [GenerateSelfSignedCertificate] produces a
// TLS certificate and key bound to a host name or address, used when a load
// balancer has TLS enabled but no certificate was supplied.
package keygen
