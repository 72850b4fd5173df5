// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultUpstreamTimeout bounds every provider and store call.
	DefaultUpstreamTimeout = 5 * time.Second

	// DefaultLoginMaxAttempts is the failed-login budget per email.
	DefaultLoginMaxAttempts = 5

	// DefaultLoginCooldown is the window of the failed-login counter.
	DefaultLoginCooldown = 15 * time.Minute

	// DefaultResetCooldown is the minimum spacing between recovery emails per address.
	DefaultResetCooldown = time.Minute

	// MaxNameLength caps nombre and apellido.
	MaxNameLength = 80

	// MaxInstitucionLength caps the teacher's institution and location fields.
	MaxInstitucionLength = 120
)
