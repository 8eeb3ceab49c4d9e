package entity

import (
	"fmt"
	"time"
)

type Supplier struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Rating      float64   `json:"rating"`
	Specialties []string  `json:"specialties"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Supplier) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: supplier name is required", ErrValidation)
	}
	if s.Rating < 0 || s.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	}
	return nil
}

/*
Mysql Table

CREATE TABLE suppliers (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(64) NOT NULL,
	address TEXT NOT NULL,
	rating DOUBLE NOT NULL,
	specialties JSON NOT NULL,
	created_at DATETIME(6) NOT NULL
);
*/
