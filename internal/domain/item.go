package domain

import "time"

type Item struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at" db:"updated_at"`
}

type CreateItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	App         string    `json:"app"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
}

type DatabaseInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

type PoolInfo struct {
	Acquired int32 `json:"acquired"`
	Idle     int32 `json:"idle"`
	Total    int32 `json:"total"`
	Max      int32 `json:"max"`
}

type InfoResponse struct {
	AppName     string       `json:"app_name"`
	Version     string       `json:"version"`
	Environment string       `json:"environment"`
	Hostname    string       `json:"hostname"`
	Database    DatabaseInfo `json:"database"`
	Pool        PoolInfo     `json:"pool"`
	Timestamp   time.Time    `json:"timestamp"`
}
