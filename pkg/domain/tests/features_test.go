package tests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
	"github.com/senharo1981/tdr-store/pkg/domain/service"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/geolocation"
)

type storefrontTestContext struct {
	storefront *service.Storefront
	sink       *mockOrderSink
	scheduler  *manualScheduler
	order      model.Order
	results    []model.Product
	err        error
}

func (c *storefrontTestContext) reset() {
	if c.storefront != nil {
		_ = c.storefront.Close()
	}
	*c = storefrontTestContext{}
}

func (c *storefrontTestContext) theStorefrontCatalog(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("catalog table needs a header and at least one row")
	}
	header := table.Rows[0].Cells
	var seed []model.Product
	for _, row := range table.Rows[1:] {
		fields := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			fields[header[i].Value] = cell.Value
		}
		p, err := decimal.NewFromString(fields["price"])
		if err != nil {
			return fmt.Errorf("product %s: %w", fields["id"], err)
		}
		seed = append(seed, model.Product{
			ID:       fields["id"],
			Name:     fields["name"],
			Category: fields["category"],
			Price:    p,
			Unit:     fields["unit"],
			Image:    model.PlaceholderImage,
			InStock:  fields["inStock"] == "true",
		})
	}

	dispatcher := &mockEventDispatcher{}
	catalog := service.NewCatalogService(context.Background(), &mockCatalogRepository{},
		service.CatalogConfig{Seed: seed, Categories: testCategories},
		&sequentialIDs{}, dispatcher, quietLogger())

	c.sink = &mockOrderSink{}
	c.scheduler = &manualScheduler{}
	checkout := service.NewCheckoutService(service.CheckoutConfig{
		Store:     tdrStore,
		Scheduler: c.scheduler,
		Location:  service.NewLocationCapture(time.Second),
	}, c.sink, dispatcher, quietLogger())

	c.storefront = service.NewStorefront(tdrStore, catalog, checkout)
	return nil
}

func (c *storefrontTestContext) iAddProductToTheBasket(id string) error {
	_, c.err = c.storefront.AddToBasket(id)
	return nil
}

func (c *storefrontTestContext) iProceedToCheckout() error {
	c.err = c.storefront.Checkout().Proceed()
	return nil
}

func (c *storefrontTestContext) iEnterDetails(name, phone, address string) error {
	return c.storefront.Checkout().UpdateCustomer(model.CustomerDetails{Name: name, Phone: phone, Address: address})
}

func (c *storefrontTestContext) myDeviceReports(lat, lng float64) error {
	fix := geolocation.Fixed{Latitude: lat, Longitude: lng}
	res := <-c.storefront.Checkout().CaptureLocation(context.Background(), fix)
	return res.Err
}

func (c *storefrontTestContext) iConfirmTheOrder() error {
	c.order, c.err = c.storefront.Checkout().ConfirmOrder(context.Background())
	return nil
}

func (c *storefrontTestContext) theSuccessScreenTimesOut() error {
	c.scheduler.FireAll()
	return nil
}

func (c *storefrontTestContext) iSearchFor(query, category string) error {
	c.results = c.storefront.Browse(query, category)
	return nil
}

func (c *storefrontTestContext) theBasketHasLine(lines, quantity int, id string) error {
	view := c.storefront.Checkout().Basket()
	if view.Lines != lines {
		return fmt.Errorf("expected %d lines, got %d", lines, view.Lines)
	}
	for _, item := range view.Items {
		if item.ID == id {
			if item.Quantity != quantity {
				return fmt.Errorf("expected quantity %d for %s, got %d", quantity, id, item.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("product %s is not in the basket", id)
}

func (c *storefrontTestContext) theBasketTotalIs(total string) error {
	if got := c.storefront.Checkout().Basket().Total.String(); got != total {
		return fmt.Errorf("expected total %s, got %s", total, got)
	}
	return nil
}

func (c *storefrontTestContext) theBasketIsEmpty() error {
	if lines := c.storefront.Checkout().Basket().Lines; lines != 0 {
		return fmt.Errorf("expected an empty basket, got %d lines", lines)
	}
	return nil
}

func (c *storefrontTestContext) theOrderMessageContains(text string) error {
	if c.err != nil {
		return fmt.Errorf("expected an order but got error: %v", c.err)
	}
	if !strings.Contains(c.order.Message, text) {
		return fmt.Errorf("message %q does not contain %q", c.order.Message, text)
	}
	return nil
}

func (c *storefrontTestContext) theOrderMessageDoesNotContain(text string) error {
	if strings.Contains(c.order.Message, text) {
		return fmt.Errorf("message %q unexpectedly contains %q", c.order.Message, text)
	}
	return nil
}

func (c *storefrontTestContext) theCheckoutStateIs(state string) error {
	if got := c.storefront.Checkout().State().String(); got != state {
		return fmt.Errorf("expected state %s, got %s", state, got)
	}
	return nil
}

func (c *storefrontTestContext) theRequestFailsWith(text string) error {
	if c.err == nil {
		return errors.New("expected the request to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got %q", text, c.err.Error())
	}
	return nil
}

func (c *storefrontTestContext) theResultsAre(list string) error {
	got := strings.Join(ids(c.results), ",")
	if got != list {
		return fmt.Errorf("expected results %s, got %s", list, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the storefront catalog:$`, tc.theStorefrontCatalog)

	// When steps
	ctx.Step(`^I add product "([^"]*)" to the basket$`, tc.iAddProductToTheBasket)
	ctx.Step(`^I proceed to checkout$`, tc.iProceedToCheckout)
	ctx.Step(`^I enter name "([^"]*)", phone "([^"]*)" and address "([^"]*)"$`, tc.iEnterDetails)
	ctx.Step(`^my device reports latitude (-?[\d.]+) and longitude (-?[\d.]+)$`, tc.myDeviceReports)
	ctx.Step(`^I confirm the order$`, tc.iConfirmTheOrder)
	ctx.Step(`^the success screen times out$`, tc.theSuccessScreenTimesOut)
	ctx.Step(`^I search for "([^"]*)" in category "([^"]*)"$`, tc.iSearchFor)

	// Then steps
	ctx.Step(`^the basket has (\d+) lines? with quantity (\d+) for product "([^"]*)"$`, tc.theBasketHasLine)
	ctx.Step(`^the basket total is "([^"]*)"$`, tc.theBasketTotalIs)
	ctx.Step(`^the basket is empty$`, tc.theBasketIsEmpty)
	ctx.Step(`^the order message contains "([^"]*)"$`, tc.theOrderMessageContains)
	ctx.Step(`^the order message does not contain "([^"]*)"$`, tc.theOrderMessageDoesNotContain)
	ctx.Step(`^the checkout state is "([^"]*)"$`, tc.theCheckoutStateIs)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the results are "([^"]*)"$`, tc.theResultsAre)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../../features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
