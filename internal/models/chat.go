package models

import "time"

type ChatMessage struct {
	ID            string    `json:"id"`
	SenderAddress string    `json:"sender_address"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
