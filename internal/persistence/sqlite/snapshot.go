package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence"
)

// SaveSnapshot replaces the stored state with snapshot in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"schedules", "equipment", "rooms", "buildings", "snapshot_meta"} {
			query, args, err := s.builder.Delete(table).ToSql()
			if err != nil {
				return fmt.Errorf("sqlite: build delete %s: %w", table, err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return mapError("clear "+table, err)
			}
		}

		for _, b := range snapshot.Buildings {
			if err := s.insertBuilding(ctx, tx, b); err != nil {
				return err
			}
		}
		for _, r := range snapshot.Rooms {
			if err := s.insertRoom(ctx, tx, r); err != nil {
				return err
			}
		}
		for _, e := range snapshot.Equipment {
			if err := s.insertEquipment(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, schedules := range snapshot.Schedules {
			for _, sch := range schedules {
				if err := s.insertSchedule(ctx, tx, sch); err != nil {
					return err
				}
			}
		}

		query, args, err := s.builder.Insert("snapshot_meta").
			Columns("singleton", "taken_at").
			Values(1, formatTime(snapshot.TakenAt)).
			ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: build snapshot_meta insert: %w", err)
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return mapError("record snapshot", err)
	})
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "snapshot saved",
		"buildings", len(snapshot.Buildings),
		"rooms", len(snapshot.Rooms),
		"schedules", snapshot.ScheduleCount(),
	)
	return nil
}

// LoadSnapshot reads the stored state. It returns persistence.ErrNotFound
// when no snapshot has been saved.
func (s *Store) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot

	query, args, err := s.builder.Select("taken_at").From("snapshot_meta").Where("singleton = 1").ToSql()
	if err != nil {
		return snapshot, fmt.Errorf("sqlite: build snapshot_meta select: %w", err)
	}
	var takenAt string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&takenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snapshot, persistence.ErrNotFound
		}
		return snapshot, mapError("read snapshot_meta", err)
	}
	if snapshot.TakenAt, err = parseTime(takenAt); err != nil {
		return snapshot, err
	}

	if snapshot.Buildings, err = s.loadBuildings(ctx); err != nil {
		return snapshot, err
	}
	if snapshot.Rooms, err = s.loadRooms(ctx); err != nil {
		return snapshot, err
	}
	if snapshot.Equipment, err = s.loadEquipment(ctx); err != nil {
		return snapshot, err
	}
	if snapshot.Schedules, err = s.loadSchedules(ctx); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (s *Store) insertBuilding(ctx context.Context, tx *sql.Tx, b domain.Building) error {
	name, address, description, err := encodeLocalized3(b.Name, b.Address, b.Description)
	if err != nil {
		return err
	}
	query, args, err := s.builder.Insert("buildings").
		Columns("id", "name", "address", "floors", "capacity", "description", "photo_ref", "created_at", "updated_at").
		Values(b.ID, name, address, b.Floors, b.Capacity, description, b.PhotoRef, formatTime(b.CreatedAt), formatTime(b.UpdatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build building insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return mapError("insert building "+b.ID, err)
}

func (s *Store) insertRoom(ctx context.Context, tx *sql.Tx, r domain.Room) error {
	name, err := json.Marshal(r.Name)
	if err != nil {
		return fmt.Errorf("sqlite: encode room name: %w", err)
	}
	features := r.AccessibilityFeatures
	if features == nil {
		features = []domain.Localized{}
	}
	encodedFeatures, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("sqlite: encode accessibility features: %w", err)
	}
	active := 0
	if r.Active {
		active = 1
	}
	query, args, err := s.builder.Insert("rooms").
		Columns("id", "building_id", "name", "floor", "room_type", "capacity", "accessibility_features", "active", "created_at", "updated_at").
		Values(r.ID, r.BuildingID, string(name), r.Floor, string(r.Type), r.Capacity, string(encodedFeatures), active, formatTime(r.CreatedAt), formatTime(r.UpdatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build room insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return mapError("insert room "+r.ID, err)
}

func (s *Store) insertEquipment(ctx context.Context, tx *sql.Tx, e domain.Equipment) error {
	name, err := json.Marshal(e.Name)
	if err != nil {
		return fmt.Errorf("sqlite: encode equipment name: %w", err)
	}
	query, args, err := s.builder.Insert("equipment").
		Columns("id", "room_id", "name", "status", "created_at", "updated_at").
		Values(e.ID, e.RoomID, string(name), string(e.Status), formatTime(e.CreatedAt), formatTime(e.UpdatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build equipment insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return mapError("insert equipment "+e.ID, err)
}

func (s *Store) insertSchedule(ctx context.Context, tx *sql.Tx, sch domain.Schedule) error {
	title, err := json.Marshal(sch.Title)
	if err != nil {
		return fmt.Errorf("sqlite: encode schedule title: %w", err)
	}
	query, args, err := s.builder.Insert("schedules").
		Columns("id", "room_id", "title", "kind", "start_at", "end_at", "recurrence_type", "recurrence_days", "created_at", "updated_at").
		Values(
			sch.ID,
			sch.RoomID,
			string(title),
			string(sch.Kind),
			formatTime(sch.Start),
			formatTime(sch.End),
			string(sch.Recurrence.Type()),
			encodeDays(sch.Recurrence.Days()),
			formatTime(sch.CreatedAt),
			formatTime(sch.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build schedule insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return mapError("insert schedule "+sch.ID, err)
}

func (s *Store) loadBuildings(ctx context.Context) ([]domain.Building, error) {
	query, args, err := s.builder.
		Select("id", "name", "address", "floors", "capacity", "description", "photo_ref", "created_at", "updated_at").
		From("buildings").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build building select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list buildings", err)
	}
	defer rows.Close()

	buildings := []domain.Building{}
	for rows.Next() {
		var (
			b                          domain.Building
			name, address, description string
			createdAt, updatedAt       string
		)
		if err := rows.Scan(&b.ID, &name, &address, &b.Floors, &b.Capacity, &description, &b.PhotoRef, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan building: %w", err)
		}
		if err := decodeLocalized(name, &b.Name); err != nil {
			return nil, err
		}
		if err := decodeLocalized(address, &b.Address); err != nil {
			return nil, err
		}
		if err := decodeLocalized(description, &b.Description); err != nil {
			return nil, err
		}
		if b.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

func (s *Store) loadRooms(ctx context.Context) ([]domain.Room, error) {
	query, args, err := s.builder.
		Select("id", "building_id", "name", "floor", "room_type", "capacity", "accessibility_features", "active", "created_at", "updated_at").
		From("rooms").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build room select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list rooms", err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		var (
			r                    domain.Room
			name, roomType       string
			features             string
			active               int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&r.ID, &r.BuildingID, &name, &r.Floor, &roomType, &r.Capacity, &features, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan room: %w", err)
		}
		if err := decodeLocalized(name, &r.Name); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &r.AccessibilityFeatures); err != nil {
			return nil, fmt.Errorf("sqlite: decode accessibility features of %s: %w", r.ID, err)
		}
		r.Type = domain.RoomType(roomType)
		r.Active = active != 0
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *Store) loadEquipment(ctx context.Context) ([]domain.Equipment, error) {
	query, args, err := s.builder.
		Select("id", "room_id", "name", "status", "created_at", "updated_at").
		From("equipment").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build equipment select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list equipment", err)
	}
	defer rows.Close()

	items := []domain.Equipment{}
	for rows.Next() {
		var (
			e                    domain.Equipment
			name, status         string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&e.ID, &e.RoomID, &name, &status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan equipment: %w", err)
		}
		if err := decodeLocalized(name, &e.Name); err != nil {
			return nil, err
		}
		e.Status = domain.EquipmentStatus(status)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *Store) loadSchedules(ctx context.Context) (map[string][]domain.Schedule, error) {
	query, args, err := s.builder.
		Select("id", "room_id", "title", "kind", "start_at", "end_at", "recurrence_type", "recurrence_days", "created_at", "updated_at").
		From("schedules").OrderBy("room_id", "start_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build schedule select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list schedules", err)
	}
	defer rows.Close()

	schedules := make(map[string][]domain.Schedule)
	for rows.Next() {
		var (
			sch                                   domain.Schedule
			title, kind, start, end, recType, days string
			createdAt, updatedAt                  string
		)
		if err := rows.Scan(&sch.ID, &sch.RoomID, &title, &kind, &start, &end, &recType, &days, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan schedule: %w", err)
		}
		if err := decodeLocalized(title, &sch.Title); err != nil {
			return nil, err
		}
		sch.Kind = domain.Kind(kind)
		if sch.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if sch.End, err = parseTime(end); err != nil {
			return nil, err
		}
		if sch.Recurrence, err = decodeRecurrence(recType, days); err != nil {
			return nil, fmt.Errorf("sqlite: schedule %s: %w", sch.ID, err)
		}
		if sch.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if sch.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		schedules[sch.RoomID] = append(schedules[sch.RoomID], sch)
	}
	return schedules, rows.Err()
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", value, err)
	}
	return t, nil
}

func encodeLocalized3(a, b, c domain.Localized) (string, string, string, error) {
	out := make([]string, 3)
	for i, l := range []domain.Localized{a, b, c} {
		data, err := json.Marshal(l)
		if err != nil {
			return "", "", "", fmt.Errorf("sqlite: encode localized value: %w", err)
		}
		out[i] = string(data)
	}
	return out[0], out[1], out[2], nil
}

func decodeLocalized(value string, into *domain.Localized) error {
	if err := json.Unmarshal([]byte(value), into); err != nil {
		return fmt.Errorf("sqlite: decode localized value: %w", err)
	}
	return nil
}

func encodeDays(set domain.WeekdaySet) string {
	days := set.Days()
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func decodeRecurrence(kind, days string) (domain.Recurrence, error) {
	var values []int
	if days != "" {
		for _, part := range strings.Split(days, ",") {
			d, err := strconv.Atoi(part)
			if err != nil {
				return domain.Recurrence{}, fmt.Errorf("%w: %q", domain.ErrInvalidWeekday, part)
			}
			values = append(values, d)
		}
	}
	return domain.ParseRecurrence(domain.RecurrenceType(kind), values)
}
