package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/conversation"
)

// ThumbsUpMarker replaces the platform's thumbs-up sticker.
const ThumbsUpMarker = "user sent a thumbs up"

// ReplyMarker replaces a reply to an earlier message.
const ReplyMarker = "user replied to a previous message"

// thumbsUpStickerIDs are the Messenger "like" sticker sizes.
var thumbsUpStickerIDs = map[string]struct{}{
	"369239263222822": {},
	"369239343222814": {},
	"369239383222810": {},
}

// ReplyPolicy controls what a reply-to message keeps. Quoted content is
// never fetched; the policy only decides whether the new text survives.
type ReplyPolicy string

const (
	// ReplyPolicyMarker drops the message text and keeps only ReplyMarker.
	ReplyPolicyMarker ReplyPolicy = "marker"
	// ReplyPolicyMarkerWithText appends the new text after the marker.
	ReplyPolicyMarkerWithText ReplyPolicy = "marker_with_text"
)

// MediaDescriber describes the media behind a URL.
type MediaDescriber interface {
	Describe(ctx context.Context, url string) (string, error)
}

// Normalizer turns inbound messages into user turns.
type Normalizer struct {
	describer   MediaDescriber
	replyPolicy ReplyPolicy
	logger      *slog.Logger
}

func NewNormalizer(log *slog.Logger, describer MediaDescriber, policy ReplyPolicy) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	if policy != ReplyPolicyMarkerWithText {
		policy = ReplyPolicyMarker
	}
	return &Normalizer{
		describer:   describer,
		replyPolicy: policy,
		logger:      log.With(slog.String("component", "normalizer")),
	}
}

// Normalize returns the user turn for msg, or false when there is nothing to
// answer (echoes, receipts, empty messages). It never fails: media that
// cannot be described degrades to a marker.
func (n *Normalizer) Normalize(ctx context.Context, msg channel.InboundMessage) (conversation.Turn, bool) {
	if msg.IsEcho {
		return conversation.Turn{}, false
	}
	if msg.IsReply {
		return n.replyTurn(msg), true
	}
	if text := msg.Text; strings.TrimSpace(text) != "" {
		return conversation.UserTurn(text), true
	}
	if len(msg.Attachments) == 0 {
		return conversation.Turn{}, false
	}
	parts := make([]string, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		if part := n.describeAttachment(ctx, att); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return conversation.Turn{}, false
	}
	return conversation.UserTurn(strings.Join(parts, "\n")), true
}

// PostbackTurn builds the user turn for a button click.
func PostbackTurn(pb channel.Postback) (conversation.Turn, bool) {
	label := pb.Label()
	if label == "" {
		return conversation.Turn{}, false
	}
	return conversation.UserTurn(`user clicked: "` + label + `"`), true
}

func (n *Normalizer) replyTurn(msg channel.InboundMessage) conversation.Turn {
	text := strings.TrimSpace(msg.Text)
	if n.replyPolicy == ReplyPolicyMarkerWithText && text != "" {
		return conversation.UserTurn(ReplyMarker + ": " + text)
	}
	return conversation.UserTurn(ReplyMarker)
}

func (n *Normalizer) describeAttachment(ctx context.Context, att channel.Attachment) string {
	if IsThumbsUp(att) {
		return ThumbsUpMarker
	}
	kind := strings.TrimSpace(string(att.Type))
	if kind == "" {
		kind = "attachment"
	}
	url := strings.TrimSpace(att.URL)
	if url == "" || n.describer == nil {
		return unseenMarker(kind)
	}
	desc, err := n.describer.Describe(ctx, url)
	desc = strings.TrimSpace(desc)
	if err != nil || desc == "" {
		n.logger.Warn("media description unavailable", slog.String("type", kind), slog.Any("error", err))
		return unseenMarker(kind)
	}
	return fmt.Sprintf(`user sent an "%s" which may have: %s`, kind, desc)
}

// IsThumbsUp reports whether att is the platform thumbs-up sticker.
func IsThumbsUp(att channel.Attachment) bool {
	_, ok := thumbsUpStickerIDs[strings.TrimSpace(att.StickerID)]
	return ok
}

func unseenMarker(kind string) string {
	return fmt.Sprintf(`user sent an "%s" can't be seen`, kind)
}
