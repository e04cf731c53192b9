package domain

import "errors"

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// Friend request errors
var (
	ErrSelfRequest            = errors.New("cannot send a friend request to yourself")
	ErrDuplicateRequest       = errors.New("a pending request already exists for this pair")
	ErrAlreadyFriends         = errors.New("users are already friends or have a pending request")
	ErrRequestNotFound        = errors.New("friend request not found")
	ErrRequestAlreadyResolved = errors.New("friend request already resolved")
)

// Messaging errors
var (
	ErrEmptyMessage = errors.New("message content is empty")
)
