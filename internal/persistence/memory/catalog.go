// Package memory keeps the live facility catalog and booking state in process
// memory. Durable copies are produced through persistence.Snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence"
)

// Catalog stores buildings, rooms and equipment.
type Catalog struct {
	mu        sync.RWMutex
	buildings map[string]domain.Building
	rooms     map[string]domain.Room
	equipment map[string]domain.Equipment
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		buildings: make(map[string]domain.Building),
		rooms:     make(map[string]domain.Room),
		equipment: make(map[string]domain.Equipment),
	}
}

// --- BuildingRepository implementation ---

// CreateBuilding stores a new building.
func (c *Catalog) CreateBuilding(ctx context.Context, building domain.Building) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.buildings[building.ID]; ok {
		return fmt.Errorf("memory: building %s: %w", building.ID, persistence.ErrDuplicate)
	}
	c.buildings[building.ID] = building
	return nil
}

// UpdateBuilding replaces an existing building. CreatedAt is preserved.
func (c *Catalog) UpdateBuilding(ctx context.Context, building domain.Building) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.buildings[building.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	building.CreatedAt = existing.CreatedAt
	c.buildings[building.ID] = building
	return nil
}

// GetBuilding retrieves a building by ID.
func (c *Catalog) GetBuilding(ctx context.Context, id string) (domain.Building, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	building, ok := c.buildings[id]
	if !ok {
		return domain.Building{}, persistence.ErrNotFound
	}
	return building, nil
}

// ListBuildings returns all buildings ordered by primary name.
func (c *Catalog) ListBuildings(ctx context.Context) ([]domain.Building, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	buildings := make([]domain.Building, 0, len(c.buildings))
	for _, building := range c.buildings {
		buildings = append(buildings, building)
	}
	sort.Slice(buildings, func(i, j int) bool {
		if buildings[i].Name.Primary == buildings[j].Name.Primary {
			return buildings[i].ID < buildings[j].ID
		}
		return buildings[i].Name.Primary < buildings[j].Name.Primary
	})
	return buildings, nil
}

// DeleteBuilding removes a building. Buildings that still own rooms are
// rejected with ErrConstraintViolation.
func (c *Catalog) DeleteBuilding(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.buildings[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, room := range c.rooms {
		if room.BuildingID == id {
			return fmt.Errorf("memory: building %s has rooms: %w", id, persistence.ErrConstraintViolation)
		}
	}
	delete(c.buildings, id)
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room. The owning building must exist.
func (c *Catalog) CreateRoom(ctx context.Context, room domain.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[room.ID]; ok {
		return fmt.Errorf("memory: room %s: %w", room.ID, persistence.ErrDuplicate)
	}
	if _, ok := c.buildings[room.BuildingID]; !ok {
		return fmt.Errorf("memory: building %s: %w", room.BuildingID, persistence.ErrForeignKeyViolation)
	}
	c.rooms[room.ID] = room.Clone()
	return nil
}

// UpdateRoom replaces an existing room. CreatedAt is preserved.
func (c *Catalog) UpdateRoom(ctx context.Context, room domain.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.rooms[room.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, ok := c.buildings[room.BuildingID]; !ok {
		return fmt.Errorf("memory: building %s: %w", room.BuildingID, persistence.ErrForeignKeyViolation)
	}
	room.CreatedAt = existing.CreatedAt
	c.rooms[room.ID] = room.Clone()
	return nil
}

// GetRoom retrieves a room by ID.
func (c *Catalog) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[id]
	if !ok {
		return domain.Room{}, persistence.ErrNotFound
	}
	return room.Clone(), nil
}

// ListRooms returns rooms ordered by building, floor and primary name.
func (c *Catalog) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]domain.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		if filter.BuildingID != "" && room.BuildingID != filter.BuildingID {
			continue
		}
		rooms = append(rooms, room.Clone())
	}
	sort.Slice(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.BuildingID != b.BuildingID {
			return a.BuildingID < b.BuildingID
		}
		if a.Floor != b.Floor {
			return a.Floor < b.Floor
		}
		if a.Name.Primary != b.Name.Primary {
			return a.Name.Primary < b.Name.Primary
		}
		return a.ID < b.ID
	})
	return rooms, nil
}

// DeleteRoom removes a room. Rooms that still hold equipment are rejected
// with ErrConstraintViolation.
func (c *Catalog) DeleteRoom(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, item := range c.equipment {
		if item.RoomID == id {
			return fmt.Errorf("memory: room %s has equipment: %w", id, persistence.ErrConstraintViolation)
		}
	}
	delete(c.rooms, id)
	return nil
}

// RoomExists reports whether a room exists and is bookable.
func (c *Catalog) RoomExists(ctx context.Context, id string) (domain.RoomStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[id]
	if !ok {
		return domain.RoomStatus{}, persistence.ErrNotFound
	}
	return domain.RoomStatus{Active: room.Active}, nil
}

// --- EquipmentRepository implementation ---

// UpsertEquipment creates or replaces an equipment item. The room must exist.
func (c *Catalog) UpsertEquipment(ctx context.Context, item domain.Equipment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[item.RoomID]; !ok {
		return fmt.Errorf("memory: room %s: %w", item.RoomID, persistence.ErrForeignKeyViolation)
	}
	if existing, ok := c.equipment[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
	}
	c.equipment[item.ID] = item
	return nil
}

// GetEquipment retrieves an equipment item by ID.
func (c *Catalog) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.equipment[id]
	if !ok {
		return domain.Equipment{}, persistence.ErrNotFound
	}
	return item, nil
}

// ListEquipment returns equipment ordered by primary name. An empty roomID
// lists every item.
func (c *Catalog) ListEquipment(ctx context.Context, roomID string) ([]domain.Equipment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]domain.Equipment, 0)
	for _, item := range c.equipment {
		if roomID != "" && item.RoomID != roomID {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name.Primary == items[j].Name.Primary {
			return items[i].ID < items[j].ID
		}
		return items[i].Name.Primary < items[j].Name.Primary
	})
	return items, nil
}

// DeleteEquipment removes an equipment item.
func (c *Catalog) DeleteEquipment(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.equipment[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(c.equipment, id)
	return nil
}

// --- snapshot support ---

// Export copies the catalog into snapshot.
func (c *Catalog) Export(snapshot *persistence.Snapshot) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot.Buildings = make([]domain.Building, 0, len(c.buildings))
	for _, building := range c.buildings {
		snapshot.Buildings = append(snapshot.Buildings, building)
	}
	sort.Slice(snapshot.Buildings, func(i, j int) bool { return snapshot.Buildings[i].ID < snapshot.Buildings[j].ID })

	snapshot.Rooms = make([]domain.Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		snapshot.Rooms = append(snapshot.Rooms, room.Clone())
	}
	sort.Slice(snapshot.Rooms, func(i, j int) bool { return snapshot.Rooms[i].ID < snapshot.Rooms[j].ID })

	snapshot.Equipment = make([]domain.Equipment, 0, len(c.equipment))
	for _, item := range c.equipment {
		snapshot.Equipment = append(snapshot.Equipment, item)
	}
	sort.Slice(snapshot.Equipment, func(i, j int) bool { return snapshot.Equipment[i].ID < snapshot.Equipment[j].ID })
}

// Import replaces the catalog with the contents of snapshot. References are
// checked before anything is replaced.
func (c *Catalog) Import(snapshot persistence.Snapshot) error {
	buildings := make(map[string]domain.Building, len(snapshot.Buildings))
	for _, building := range snapshot.Buildings {
		if _, ok := buildings[building.ID]; ok {
			return fmt.Errorf("memory: building %s: %w", building.ID, persistence.ErrDuplicate)
		}
		buildings[building.ID] = building
	}
	rooms := make(map[string]domain.Room, len(snapshot.Rooms))
	for _, room := range snapshot.Rooms {
		if _, ok := rooms[room.ID]; ok {
			return fmt.Errorf("memory: room %s: %w", room.ID, persistence.ErrDuplicate)
		}
		if _, ok := buildings[room.BuildingID]; !ok {
			return fmt.Errorf("memory: room %s references building %s: %w", room.ID, room.BuildingID, persistence.ErrForeignKeyViolation)
		}
		rooms[room.ID] = room.Clone()
	}
	equipment := make(map[string]domain.Equipment, len(snapshot.Equipment))
	for _, item := range snapshot.Equipment {
		if _, ok := rooms[item.RoomID]; !ok {
			return fmt.Errorf("memory: equipment %s references room %s: %w", item.ID, item.RoomID, persistence.ErrForeignKeyViolation)
		}
		equipment[item.ID] = item
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildings = buildings
	c.rooms = rooms
	c.equipment = equipment
	return nil
}
