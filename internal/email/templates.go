package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"
)

// OrderInfo contains all the information needed for order email templates.
type OrderInfo struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	ShopName        string
	ShopURL         string
	ShippingAddress string
	ShippingMethod  string
	DeliveryETA     string
	PaymentURL      string
	OrderDate       string
	Items           []OrderItem
	Subtotal        string
	Shipping        string
	Tax             string
	Discount        string
	Total           string
}

// OrderItem represents a single line in an order.
type OrderItem struct {
	Name       string
	SKU        string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

// Renderer provides methods to render email templates.
type Renderer struct {
	templates *template.Template
}

type emailTemplate struct {
	Subject string
	HTML    string
	Text    string
}

// NewRenderer creates a new email template renderer with built-in templates.
func NewRenderer() (*Renderer, error) {
	templates := map[string]emailTemplate{
		"order_confirmation": {
			Subject: "Order Confirmed - {{.OrderNumber}} - {{.ShopName}}",
			HTML:    orderConfirmationHTML,
			Text:    orderConfirmationText,
		},
		"order_fulfilled": {
			Subject: "Your Order Is On Its Way - {{.OrderNumber}} - {{.ShopName}}",
			HTML:    orderFulfilledHTML,
			Text:    orderFulfilledText,
		},
	}

	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
	}

	tmpl := template.New("email").Funcs(funcMap)

	for key, t := range templates {
		_, err := tmpl.New(key + "_html").Parse(t.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", key, err)
		}
		_, err = tmpl.New(key + "_text").Parse(t.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
	}

	return &Renderer{
		templates: tmpl,
	}, nil
}

// Render renders an email template with the given data.
func (r *Renderer) Render(ctx context.Context, templateName string, data *OrderInfo) (*Email, error) {
	var htmlBuf, textBuf bytes.Buffer

	err := r.templates.ExecuteTemplate(&htmlBuf, templateName+"_html", data)
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	err = r.templates.ExecuteTemplate(&textBuf, templateName+"_text", data)
	if err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	subject := ""
	switch templateName {
	case "order_confirmation":
		subject = fmt.Sprintf("Order Confirmed - %s - %s", data.OrderNumber, data.ShopName)
	case "order_fulfilled":
		subject = fmt.Sprintf("Your Order Is On Its Way - %s - %s", data.OrderNumber, data.ShopName)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

// SendOrderConfirmation sends an order confirmation email.
func SendOrderConfirmation(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, "order_confirmation", orderInfo)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

// SendOrderFulfilled sends a fulfillment notification email.
func SendOrderFulfilled(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, "order_fulfilled", orderInfo)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

// Template text content - Order Confirmation
const orderConfirmationText = `Thank you for your order!

Order Number: {{.OrderNumber}}
Order Date: {{.OrderDate}}

Items:
{{range .Items}}
- {{.Name}} x{{.Quantity}} - {{.TotalPrice}}
{{end}}

Subtotal: {{.Subtotal}}
Shipping: {{.Shipping}} ({{.ShippingMethod}}{{if .DeliveryETA}}, est. {{.DeliveryETA}}{{end}})
Tax: {{.Tax}}
{{if .Discount}}Discount: -{{.Discount}}{{end}}
Total: {{.Total}}

{{if .PaymentURL}}Complete your payment here: {{.PaymentURL}}{{end}}

We'll send you another email when your order ships.

Thank you for shopping with {{.ShopName}}!
{{.ShopURL}}
`

// Template HTML content - Order Confirmation
const orderConfirmationHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Confirmation</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #0e7490; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
    .order-info { background: white; padding: 15px; border-radius: 6px; margin: 15px 0; }
    .items-table { width: 100%; border-collapse: collapse; margin: 15px 0; }
    .items-table th { text-align: left; padding: 10px; background: #f3f4f6; border-bottom: 2px solid #e5e7eb; }
    .items-table td { padding: 10px; border-bottom: 1px solid #e5e7eb; }
    .total { font-size: 18px; font-weight: bold; text-align: right; padding: 15px 0; }
    .footer { text-align: center; padding: 20px; color: #6b7280; font-size: 14px; }
    .button { display: inline-block; background: #0e7490; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin-top: 15px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Order Confirmed!</h1>
    <p>Thank you for your order, {{.CustomerName}}</p>
  </div>
  <div class="content">
    <div class="order-info">
      <strong>Order Number:</strong> {{.OrderNumber}}<br>
      <strong>Order Date:</strong> {{.OrderDate}}<br>
      <strong>Shipping:</strong> {{.ShippingMethod}}{{if .DeliveryETA}} (est. {{.DeliveryETA}}){{end}}
    </div>

    <h3>Order Summary</h3>
    <table class="items-table">
      <thead>
        <tr>
          <th>Item</th>
          <th>Qty</th>
          <th>Price</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{.Quantity}}</td>
          <td>{{.TotalPrice}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="total">
      <p>Subtotal: {{.Subtotal}}</p>
      <p>Shipping: {{.Shipping}}</p>
      <p>Tax: {{.Tax}}</p>
      {{if .Discount}}<p>Discount: -{{.Discount}}</p>{{end}}
      <p>Total: {{.Total}}</p>
    </div>

    {{if .PaymentURL}}<p><a href="{{.PaymentURL}}" class="button">Complete Payment</a></p>{{end}}
    <p>We'll send you another email when your order ships.</p>
  </div>
  <div class="footer">
    <p>Thank you for shopping with <a href="{{.ShopURL}}">{{.ShopName}}</a></p>
  </div>
</body>
</html>
`

// Template text content - Order Fulfilled
const orderFulfilledText = `Great news! Your order is on its way!

Order Number: {{.OrderNumber}}
Shipped Date: {{.OrderDate}}

Shipping Method: {{.ShippingMethod}}{{if .DeliveryETA}}
Estimated Delivery: {{.DeliveryETA}}{{end}}

Shipping Address:
{{.ShippingAddress}}

Thank you for shopping with {{.ShopName}}!
{{.ShopURL}}
`

// Template HTML content - Order Fulfilled
const orderFulfilledHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order On Its Way</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #059669; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
    .shipping { background: white; padding: 20px; border-radius: 6px; margin: 15px 0; border-left: 4px solid #059669; }
    .footer { text-align: center; padding: 20px; color: #6b7280; font-size: 14px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Your Order Is On Its Way!</h1>
    <p>Great news, {{.CustomerName}}! Your order has shipped.</p>
  </div>
  <div class="content">
    <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
    <p><strong>Shipped Date:</strong> {{.OrderDate}}</p>

    <div class="shipping">
      <p><strong>Method:</strong> {{.ShippingMethod}}</p>
      {{if .DeliveryETA}}<p><strong>Estimated Delivery:</strong> {{.DeliveryETA}}</p>{{end}}
    </div>

    <h3>Shipping Address</h3>
    <p>{{.ShippingAddress}}</p>
  </div>
  <div class="footer">
    <p>Thank you for shopping with <a href="{{.ShopURL}}">{{.ShopName}}</a></p>
  </div>
</body>
</html>
`
