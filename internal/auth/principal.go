// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

// Principal is the actor behind a request. The zero value is an anonymous
// visitor.
type Principal struct {
	UserID int64
	Email  string
	Name   string
}

// Anonymous is the principal of an unauthenticated visitor.
var Anonymous = Principal{}

// IsOperator reports whether the principal is a signed-in operator.
func (p Principal) IsOperator() bool {
	return p.UserID != 0
}

// Operator returns the principal for a signed-in user.
func Operator(id int64, email, name string) Principal {
	return Principal{UserID: id, Email: email, Name: name}
}
