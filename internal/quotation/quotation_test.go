package quotation

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/orders"
)

func testOrder() orders.Order {
	o := orders.NewQuoteRequest(orders.Customer{
		Name:         "Kavya Nair",
		BusinessName: "Kerala Wellness Retreat",
		Email:        "kavya@example.com",
		Phone:        "+919847000111",
	}, cart.Item{ProductID: "6", ProductName: "Ashwagandha", Form: catalog.FormRaw, Quantity: cart.TierQuantity("25kg"), Price: 21000}, time.Now())
	o.Items = append(o.Items,
		cart.Item{ProductID: "1", ProductName: "Awala (Dry)", Form: catalog.FormPowder, Quantity: cart.TierQuantity("1kg"), Price: 518},
		cart.Item{ProductID: "10", ProductName: "Brahmni", Form: catalog.FormRaw, Quantity: cart.CustomGrams(1500), Price: 1211},
		cart.Item{ProductID: cart.BulkInquiryProductID, ProductName: "Peace of Mind Blend (raw)", Form: catalog.FormRaw, Quantity: cart.CustomGrams(12000)},
	)
	o.TotalAmount = 22729
	return o
}

func TestBuild(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	doc := Build(testOrder(), c, now)

	assert.Equal(t, now.Add(7*24*time.Hour), doc.ValidUntil)
	assert.Equal(t, "Kerala Wellness Retreat", doc.BusinessName)
	require.Len(t, doc.Rows, 4)

	assert.Equal(t, Row{Description: "Ashwagandha", Form: "RAW", Quantity: "25kg", MarketRate: "30,000", Discount: "30%", Total: "21,000"}, doc.Rows[0])
	assert.Equal(t, Row{Description: "Awala (Dry)", Form: "POWDER", Quantity: "1kg", MarketRate: "518", Discount: "0%", Total: "518"}, doc.Rows[1])
	assert.Equal(t, "1,425", doc.Rows[2].MarketRate)
	assert.Equal(t, "15%", doc.Rows[2].Discount)
	assert.Equal(t, Row{Description: "Peace of Mind Blend (raw)", Form: "RAW", Quantity: "12000g", MarketRate: "Dynamic", Discount: "0%", Total: "On Request"}, doc.Rows[3])
}

func TestBuildWithoutCatalog(t *testing.T) {
	o := testOrder()
	o.BusinessName = ""
	doc := Build(o, nil, time.Now())

	assert.Equal(t, "N/A", doc.BusinessName)
	assert.Equal(t, "Dynamic", doc.Rows[0].MarketRate)
}

func TestWriteText(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	o := testOrder()
	doc := Build(o, c, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, doc.WriteText(&buf))
	body := buf.String()

	for _, want := range []string{
		"PROFORMA QUOTATION",
		"Ref No: " + o.ID,
		"Date: 01 Jun 2026",
		"Valid Until: 08 Jun 2026",
		"Business Name: Kerala Wellness Retreat",
		"Grand Total: INR 22,729",
		"1. Rates are subject to market fluctuation. This quote is valid for 7 days.",
		"3. Delivery timeline: 5-7 business days post payment.",
	} {
		assert.Contains(t, body, want)
	}

	var header string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "Item Description") {
			header = line
		}
	}
	assert.Contains(t, header, "Market Rate")
	assert.Contains(t, header, "Total (INR)")
}

func TestWritePDF(t *testing.T) {
	doc := Build(testOrder(), nil, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, doc.WritePDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "Generated_QUOTE-AB12CD34.pdf", GeneratedFileName("QUOTE-AB12CD34"))
	assert.Equal(t, "PrakAmrit_Quote_QUOTE-AB12CD34.pdf", DownloadName("QUOTE-AB12CD34"))
}
