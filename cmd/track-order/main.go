// Command track-order looks up an order by its tracking reference and prints
// its fulfillment progress. With --confirm it watches the order until payment
// is confirmed or the wait ceiling elapses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/savourly/orderflow/internal/confirm"
	"github.com/savourly/orderflow/internal/domain/order"
	"github.com/savourly/orderflow/internal/track"
)

func main() {
	var (
		baseURL     string
		reference   string
		doConfirm   bool
		believePaid bool
		ceiling     time.Duration
	)

	flag.StringVar(&baseURL, "api", "http://localhost:8080/api", "API base URL")
	flag.StringVar(&reference, "reference", "", "order tracking reference (ORD-...)")
	flag.BoolVar(&doConfirm, "confirm", false, "poll until payment is confirmed")
	flag.BoolVar(&believePaid, "paid", false, "warn if the server disagrees that payment settled")
	flag.DurationVar(&ceiling, "ceiling", 5*time.Minute, "maximum confirmation wait")
	flag.Parse()

	if reference == "" {
		slog.Error("tracking reference is required: set --reference")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, baseURL, reference, doConfirm, believePaid, ceiling); err != nil {
		var nf *track.NotFoundError
		if errors.As(err, &nf) {
			slog.Error("order not found, check the reference", slog.String("reference", nf.Reference))
			os.Exit(2)
		}
		slog.Error("track failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL, reference string, doConfirm, believePaid bool, ceiling time.Duration) error {
	client := track.NewClient(baseURL, &http.Client{Timeout: 10 * time.Second})

	result, err := client.Track(ctx, reference)
	if err != nil {
		return err
	}
	printOrder(result, believePaid)

	if !doConfirm || result.Order.PaymentStatus == order.PaymentPaid {
		return nil
	}
	return watchPayment(ctx, client, result.Order.Reference, ceiling)
}

func printOrder(result *track.Result, believePaid bool) {
	o := result.Order

	status, mismatch := track.Reconcile(believePaid, o.PaymentStatus)
	if mismatch != nil {
		fmt.Fprintln(os.Stderr, "warning: "+mismatch.Warning())
	}

	fmt.Printf("Order %s\n", o.Reference)
	fmt.Printf("  Placed:   %s\n", o.CreatedAt.Local().Format(time.RFC1123))
	fmt.Printf("  Payment:  %s\n", status)
	fmt.Printf("  Progress: %s\n", progressBar(o.Status))

	for _, item := range o.Items {
		fmt.Printf("  %d x %-30s %10s\n", item.Quantity, item.FoodName, item.TotalPrice.StringFixed(2))
	}

	t := result.Totals(track.Totals{})
	fmt.Printf("  %-34s %10s\n", "Subtotal", t.Subtotal.StringFixed(2))
	fmt.Printf("  %-34s %10s\n", "Delivery", t.DeliveryFee.StringFixed(2))
	fmt.Printf("  %-34s %10s\n", "Total", t.Total.StringFixed(2))
}

// progressBar renders the linear fulfillment progression, e.g.
// "pending [##--] preparing".
func progressBar(s order.Status) string {
	step, ok := track.ProgressStep(s)
	if !ok {
		return string(s)
	}
	return fmt.Sprintf("[%s%s] %s",
		strings.Repeat("#", step),
		strings.Repeat("-", track.ProgressSteps-step),
		s,
	)
}

// watchPayment runs the confirmation poller against the status endpoint until
// payment settles, the ceiling elapses, or the user interrupts.
func watchPayment(ctx context.Context, client *track.Client, reference string, ceiling time.Duration) error {
	done := make(chan error, 1)

	poller := confirm.New(confirm.Config{
		Ceiling: ceiling,
		OnElapsed: func(seconds int) {
			fmt.Printf("\rwaiting for payment confirmation... %ds", seconds)
		},
		OnSuccess: func() {
			fmt.Println("\npayment confirmed")
			done <- nil
		},
		OnTimeout: func() {
			fmt.Println()
			done <- errors.New("payment not confirmed in time, check again later")
		},
		OnCheckError: func(err error) {
			slog.Warn("status check failed, will retry", slog.String("error", err.Error()))
		},
	}, func(ctx context.Context) (order.PaymentStatus, error) {
		result, err := client.Track(ctx, reference)
		if err != nil {
			return "", err
		}
		return result.Order.PaymentStatus, nil
	})

	if err := poller.Confirm(ctx); err != nil {
		return err
	}
	defer func() { _ = poller.Close(true) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Println()
		return ctx.Err()
	}
}
