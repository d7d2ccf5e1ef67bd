package application

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/order/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLines() []cartdomain.Line {
	return []cartdomain.Line{
		{ID: 1, Name: "Tensiomètre", Price: decimal.NewNullDecimal(decimal.NewFromInt(12500)), Quantity: 2},
		{ID: 2, Name: "Gel hydroalcoolique & co", Quantity: 1},
	}
}

func decodeText(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("text")
}

func TestLinkBuilder_OrderURL(t *testing.T) {
	b := NewLinkBuilder("22891798292", "F CFA")
	link := b.OrderURL(sampleLines())

	assert.True(t, strings.HasPrefix(link, "https://wa.me/22891798292?text=Bonjour%2C%20je"), link)
	assert.NotContains(t, link, "+")

	text := decodeText(t, link)
	want := "Bonjour, je souhaite commander les produits suivants :\n\n" +
		"\n* *Tensiomètre* x2\n" + "\n" + "\n* *Gel hydroalcoolique & co* x1\n" +
		"\n\nMontant total estimé : " + b.FormatAmount(decimal.NewFromInt(25000)) + " F CFA"
	assert.Equal(t, want, text)
}

func TestLinkBuilder_SharedCartMessage(t *testing.T) {
	b := NewLinkBuilder("+22891798292", "")
	text := decodeText(t, b.SharedCartOrderURL(sampleLines()))

	assert.Contains(t, text, "\n\n- Tensiomètre x2\n- Gel hydroalcoolique & co x1\n\n")
	assert.True(t, strings.HasSuffix(text, " F CFA"))
}

func TestLinkBuilder_FormatAmountGroupsDigits(t *testing.T) {
	b := NewLinkBuilder("1", "")
	formatted := b.FormatAmount(decimal.NewFromInt(1250000))

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, formatted)
	assert.Equal(t, "1250000", digits)
	assert.NotEqual(t, "1250000", formatted)
	assert.Equal(t, "0", b.FormatAmount(decimal.Zero))
}

func TestLinkBuilder_ProductLinks(t *testing.T) {
	b := NewLinkBuilder("22891798292", "")
	assert.Equal(t,
		`Bonjour! Je souhaite avoir plus d'informations sur le produit "Masque FFP2".`,
		decodeText(t, b.ProductInquiryURL("Masque FFP2")))
	assert.Equal(t,
		"Bonjour, j'ai une question concernant le produit : Masque FFP2",
		decodeText(t, b.ProductQuestionURL("Masque FFP2")))
	assert.Equal(t, "https://wa.me/22891798292", b.ContactURL())
}

type capturePublisher struct {
	topic string
	key   string
	event any
	err   error
}

func (p *capturePublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.topic, p.key, p.event = topic, key, event
	return p.err
}

func TestHandoffService_Checkout(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewHandoffService(NewLinkBuilder("22891798292", "F CFA"), pub, "", nil)

	intent, err := svc.Checkout(context.Background(), "sess-1", sampleLines())
	require.NoError(t, err)
	assert.Equal(t, 3, intent.Count)
	assert.True(t, intent.Total.Equal(decimal.NewFromInt(25000)))
	assert.True(t, strings.HasPrefix(intent.Link, "https://wa.me/22891798292?text="))

	assert.Equal(t, domain.EventOrderIntentCreated, pub.topic)
	assert.Equal(t, intent.IntentID, pub.key)
	event := pub.event.(domain.OrderIntentCreatedEvent)
	assert.Equal(t, "sess-1", event.SessionID)
	assert.Len(t, event.Lines, 2)
}

func TestHandoffService_PublishFailureStillHandsOff(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	svc := NewHandoffService(NewLinkBuilder("22891798292", ""), pub, "orders", nil)

	intent, err := svc.Checkout(context.Background(), "sess-1", sampleLines())
	require.NoError(t, err)
	assert.NotEmpty(t, intent.Link)
	assert.Equal(t, "orders", pub.topic)
}

func TestHandoffService_EmptyCart(t *testing.T) {
	svc := NewHandoffService(NewLinkBuilder("22891798292", ""), nil, "", nil)
	_, err := svc.Checkout(context.Background(), "sess-1", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}
