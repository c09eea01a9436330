// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package model defines the storage-agnostic value types shared by every
// scheduler component: jobs, routings, machines, operators, and the
// schedule entries the job scheduler produces.
//
// Types in this package carry opaque UUID identities and side-table
// references rather than pointers between each other, so the object
// graph never cycles and the types remain trivially serializable.
package model

import "github.com/google/uuid"

// NewID returns a fresh opaque identity for any domain row.
func NewID() string {
	return uuid.NewString()
}
