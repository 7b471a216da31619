// Package messenger implements the Facebook Messenger webhook receiver and the
// Graph API send client.
package messenger

import (
	"strings"
	"time"

	"github.com/memohai/mbot/internal/channel"
)

// Type is the channel type of Messenger.
const Type channel.ChannelType = "messenger"

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID        string             `json:"id"`
	Time      int64              `json:"time"`
	Messaging []messagingElement `json:"messaging"`
}

type messagingElement struct {
	Sender    *participant  `json:"sender"`
	Recipient *participant  `json:"recipient"`
	Timestamp int64         `json:"timestamp"`
	Message   *wireMessage  `json:"message"`
	Postback  *wirePostback `json:"postback"`
	Delivery  *struct{}     `json:"delivery"`
	Read      *struct{}     `json:"read"`
}

type participant struct {
	ID string `json:"id"`
}

type wireMessage struct {
	MID         string           `json:"mid"`
	Text        string           `json:"text"`
	IsEcho      bool             `json:"is_echo"`
	ReplyTo     *wireReplyTo     `json:"reply_to"`
	StickerID   stickerID        `json:"sticker_id"`
	Attachments []wireAttachment `json:"attachments"`
}

type wireReplyTo struct {
	MID string `json:"mid"`
}

type wireAttachment struct {
	Type    string                 `json:"type"`
	Payload *wireAttachmentPayload `json:"payload"`
}

type wireAttachmentPayload struct {
	URL       string    `json:"url"`
	StickerID stickerID `json:"sticker_id"`
}

type wirePostback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// stickerID accepts both the numeric and the string form the platform uses.
type stickerID string

func (s *stickerID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}
	*s = stickerID(strings.Trim(raw, `"`))
	return nil
}

// toEvents flattens a delivery into inbound events in document order. Events
// without a sender are dropped; receipts carry neither message nor postback.
func (p webhookPayload) toEvents(receivedAt time.Time) []channel.InboundEvent {
	var events []channel.InboundEvent
	for _, entry := range p.Entry {
		for _, el := range entry.Messaging {
			if el.Sender == nil || strings.TrimSpace(el.Sender.ID) == "" {
				continue
			}
			event := channel.InboundEvent{
				Channel:    Type,
				SenderID:   strings.TrimSpace(el.Sender.ID),
				ReceivedAt: receivedAt,
			}
			if el.Message != nil {
				msg := el.Message.toInbound()
				event.Message = &msg
			}
			if el.Postback != nil {
				event.Postback = &channel.Postback{Title: el.Postback.Title, Payload: el.Postback.Payload}
			}
			events = append(events, event)
		}
	}
	return events
}

func (m wireMessage) toInbound() channel.InboundMessage {
	msg := channel.InboundMessage{
		ID:     strings.TrimSpace(m.MID),
		Text:   m.Text,
		IsEcho: m.IsEcho,
	}
	if m.ReplyTo != nil {
		msg.IsReply = true
		msg.ReplyToID = m.ReplyTo.MID
	}
	for _, att := range m.Attachments {
		item := channel.Attachment{Type: channel.AttachmentType(strings.TrimSpace(att.Type))}
		if att.Payload != nil {
			item.URL = strings.TrimSpace(att.Payload.URL)
			item.StickerID = string(att.Payload.StickerID)
		}
		if item.StickerID == "" {
			item.StickerID = string(m.StickerID)
		}
		msg.Attachments = append(msg.Attachments, item)
	}
	return msg
}
