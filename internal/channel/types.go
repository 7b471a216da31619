// Package channel holds the platform-neutral inbound event and outbound
// fragment types along with the dedup window and the reply dispatcher.
package channel

import (
	"encoding/json"
	"strings"
	"time"
)

// ChannelType identifies a messaging platform.
type ChannelType string

func (c ChannelType) String() string {
	return string(c)
}

// InboundEvent is one entry of a webhook delivery after decoding. Exactly one
// of Message or Postback is set for events worth processing.
type InboundEvent struct {
	Channel    ChannelType
	SenderID   string
	Message    *InboundMessage
	Postback   *Postback
	ReceivedAt time.Time
}

// DedupKey returns the platform message id, or "" for events that bypass
// duplicate suppression (postbacks, receipts).
func (e InboundEvent) DedupKey() string {
	if e.Message == nil {
		return ""
	}
	return strings.TrimSpace(e.Message.ID)
}

// InboundMessage is a user message as the platform delivered it.
type InboundMessage struct {
	ID          string
	Text        string
	IsEcho      bool
	IsReply     bool
	ReplyToID   string
	Attachments []Attachment
}

// AttachmentType is the platform attachment kind ("image", "audio", ...).
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentVideo    AttachmentType = "video"
	AttachmentFile     AttachmentType = "file"
	AttachmentTemplate AttachmentType = "template"
	AttachmentFallback AttachmentType = "fallback"
)

// Attachment is an inbound media reference.
type Attachment struct {
	Type      AttachmentType
	URL       string
	StickerID string
}

// Postback is a button click delivered by the platform.
type Postback struct {
	Title   string
	Payload string
}

// Label returns the title, falling back to the payload.
func (p Postback) Label() string {
	if title := strings.TrimSpace(p.Title); title != "" {
		return title
	}
	return strings.TrimSpace(p.Payload)
}

// FragmentKind is the kind of one outbound reply unit.
type FragmentKind string

const (
	FragmentText         FragmentKind = "text"
	FragmentAttachment   FragmentKind = "attachment"
	FragmentQuickReplies FragmentKind = "quick_replies"
)

// Fragment is one discrete outbound unit of a reply.
type Fragment struct {
	Kind         FragmentKind
	Text         string
	Attachment   *OutboundAttachment
	QuickReplies json.RawMessage
}

// OutboundAttachment is an attachment sent by URL.
type OutboundAttachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// TextFragment builds a text fragment.
func TextFragment(text string) Fragment {
	return Fragment{Kind: FragmentText, Text: text}
}

// SenderAction is a typing/read indicator.
type SenderAction string

const (
	ActionMarkSeen  SenderAction = "mark_seen"
	ActionTypingOn  SenderAction = "typing_on"
	ActionTypingOff SenderAction = "typing_off"
)
