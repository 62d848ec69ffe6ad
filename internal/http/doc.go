// Package http exposes the facility catalog, equipment registry and booking
// engine over a JSON REST API routed with gorilla/mux.
//
// All resources live under /api/v1:
//   - /buildings and /buildings/{id}: building catalog.
//   - /rooms (?building_id=) and /rooms/{id}: rooms; /rooms/{id}/bookings
//     (?from=&to=) lists accepted schedules and /rooms/{id}/occurrences
//     (?from=&to=) expands them.
//   - /equipment (?room_id=) and /equipment/{id}: equipment registry.
//   - /bookings and /bookings/{id}: propose, replace, fetch and cancel
//     schedules.
//
// Reads are open to anonymous callers. Writes need a principal allowed to
// manage, resolved from "Authorization: Bearer <jwt>" or "X-API-Key".
// Errors are returned as {"error_code","message","errors","conflicting_schedule_id"}.
package http
