package dto

type StockMovementResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	Kind          string  `json:"kind"`
	Quantity      int     `json:"quantity"`
	StockBefore   int     `json:"stock_before"`
	StockAfter    int     `json:"stock_after"`
	ReferenceID   *string `json:"reference_id"`
	ReferenceCode string  `json:"reference_code"`
	CreatedAt     string  `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
