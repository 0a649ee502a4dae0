package store

type Card struct {
	CardName string `json:"card_name"`
	Category string `json:"category"`
	Cost     int    `json:"cost"`
	Order    int    `json:"order"`
}
