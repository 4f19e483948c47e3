// Package domain contains core concepts of the real-time layer.
// This file defines the authenticated identity attached to a connection.
package domain

// Identity is the verified identity of a connected user.
// It is obtained once from the auth gate and never changes for
// the lifetime of a connection.
type Identity struct {
	UserID   string
	Username string
	Role     string
}
