package domain

import (
	"slices"
	"time"
)

const (
	GroupEmployees   = "Employees"
	GroupDispatchers = "Dispatchers"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsSuperuser  bool
	IsActive     bool
	Groups       []string
	CreatedAt    time.Time
}

func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

func (u User) InGroup(name string) bool {
	return slices.Contains(u.Groups, name)
}

func (u User) IsEmployee() bool {
	return u.IsActive && u.InGroup(GroupEmployees)
}

func (u User) IsDispatcher() bool {
	return u.IsActive && u.InGroup(GroupDispatchers)
}
