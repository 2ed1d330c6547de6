package domain

import "time"

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

type ProductCount struct {
	ProductName string `json:"product_name"`
	Count       int    `json:"count"`
}
