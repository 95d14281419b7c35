// Package domain holds the core entities of the event platform: users,
// events, participations, and notifications, together with their
// validation rules. It has no dependency on storage or delivery concerns.
package domain
