package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"server-market-go/internal/common"
	"server-market-go/internal/config"
	"server-market-go/internal/database"
	"server-market-go/internal/gateway"
	"server-market-go/internal/market"
	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"go.uber.org/zap"
)

const grantTimeout = 5 * time.Second

const usage = `usage: trade <command> [flags]

commands:
  buy       --as <player> --item <id> [--variant <v>] --quantity <n> [--from <seller>]
  sell      --as <player> --item <id> [--variant <v>] --quantity <n> [--to <buyer>]
  pay       --as <player> --to <account> --amount <amount> [--note <text>]
  list      --as <player> --item <id> [--variant <v>] --price <amount> --quantity <n>
  delist    --as <player> --item <id> [--variant <v>]
  order     --as <player> --item <id> [--variant <v>] --price <amount> --target <n>
  cancel    --as <player> --item <id> [--variant <v>]
  search    --item <id> [--variant <v>]
  parcels   --as <player>
  claim     --as <player> --item <id> [--variant <v>]
  deposit   --as <player> --item <id> [--variant <v>] --quantity <n>
  withdraw  --as <player> --amount <amount>
`

type tradeFlags struct {
	set      *flag.FlagSet
	as       *string
	item     *string
	variant  *string
	quantity *int64
	price    *string
	amount   *string
	target   *int64
	from     *string
	to       *string
	note     *string
}

func newTradeFlags(name string) *tradeFlags {
	set := flag.NewFlagSet(name, flag.ExitOnError)
	return &tradeFlags{
		set:      set,
		as:       set.String("as", "", "Acting account id or player name"),
		item:     set.String("item", "", "Item id"),
		variant:  set.String("variant", "", "Item variant key"),
		quantity: set.Int64("quantity", 0, "Item count"),
		price:    set.String("price", "", "Unit price"),
		amount:   set.String("amount", "", "Currency amount"),
		target:   set.Int64("target", 0, "Total units wanted by a purchase order"),
		from:     set.String("from", "", "Only buy from this seller"),
		to:       set.String("to", "", "Counterparty account id or player name"),
		note:     set.String("note", "", "Payment description"),
	}
}

func (f *tradeFlags) itemRef() models.Item {
	return models.Item{Id: *f.item, Variant: *f.variant}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}
	command := os.Args[1]
	flags := newTradeFlags(command)
	if err := flags.set.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	loop := gateway.NewLoop()
	services, err := common.InitializeServices(ctx, cfg, market.LogDispenser{}, loop)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := run(ctx, services, loop, command, flags); err != nil {
		zap.L().Error("Trade command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		services.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, services *common.Services, loop *gateway.Loop, command string, f *tradeFlags) error {
	svc := services.Market

	var actor models.Party
	if *f.as != "" {
		p, err := common.ResolveParty(ctx, svc, *f.as)
		if err != nil {
			return err
		}
		actor = p
	} else if command != "search" {
		return fmt.Errorf("--as is required for %s", command)
	}

	switch command {
	case "buy":
		req := market.PurchaseRequest{Buyer: actor, ItemId: *f.item, Quantity: *f.quantity}
		if *f.variant != "" {
			req.Variant = f.variant
		}
		if *f.from != "" {
			seller, err := common.ResolveParty(ctx, svc, *f.from)
			if err != nil {
				return err
			}
			req.Seller = &seller
		}
		result, err := svc.Buy(req).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(common.DescribeResult(result))
		if _, ok := result.(market.PurchaseSuccess); ok {
			drainGrants(loop)
		}

	case "sell":
		req := market.SellRequest{Seller: actor, Item: f.itemRef(), Quantity: *f.quantity}
		if *f.to != "" {
			buyer, err := common.ResolveParty(ctx, svc, *f.to)
			if err != nil {
				return err
			}
			req.Buyer = &buyer
		}
		result, err := svc.Sell(req).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(common.DescribeResult(result))

	case "pay":
		to, err := common.ResolveParty(ctx, svc, *f.to)
		if err != nil {
			return err
		}
		amount, err := money.Parse(*f.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", *f.amount, err)
		}
		result, err := svc.Pay(actor, to, amount, *f.note).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(common.DescribeResult(result))

	case "list":
		price, err := money.Parse(*f.price)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", *f.price, err)
		}
		listing, err := svc.ListItem(market.ListRequest{Seller: actor, Item: f.itemRef(), Price: price, Quantity: *f.quantity}).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("listed %s x%s at %s\n", listing.Item, common.FormatQuantity(listing.Quantity), common.FormatAmount(listing.Price()))

	case "delist":
		returned, err := svc.Delist(actor, f.itemRef()).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("delisted %s, %d returned\n", f.itemRef(), returned)
		if returned > 0 {
			drainGrants(loop)
		}

	case "order":
		price, err := money.Parse(*f.price)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", *f.price, err)
		}
		order, err := svc.PostOrder(market.OrderRequest{Buyer: actor, Item: f.itemRef(), Price: price, Target: *f.target}).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("order for %s: %d/%d at %s\n", order.Item, order.Current, order.Target, common.FormatAmount(order.Price()))

	case "cancel":
		order, err := svc.CancelOrder(actor, f.itemRef()).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("cancelled order for %s after %d filled\n", order.Item, order.Current)

	case "search":
		filter := database.SearchFilter{ItemId: *f.item}
		if *f.variant != "" {
			filter.Variant = f.variant
		}
		listings, err := svc.Search(ctx, filter)
		if err != nil {
			return err
		}
		common.PrintHeader("OFFERS FOR "+*f.item, common.DefaultWidth)
		for i, l := range listings {
			fmt.Printf("%s %-24s %-38s %10s  x%s\n",
				common.BoxPrefix(i == len(listings)-1),
				l.Item, l.Seller.Key(), common.FormatAmount(l.Price()), common.FormatQuantity(l.Quantity))
		}
		common.PrintSeparator("=", common.DefaultWidth)

	case "parcels":
		parcels, err := svc.Parcels(ctx, actor)
		if err != nil {
			return err
		}
		fmt.Printf("%d parcel(s) waiting for %s", len(parcels), actor)
		common.PrintSeparatorNewline("-", common.DefaultWidth)
		for i, p := range parcels {
			fmt.Printf("%s %-24s x%d  %s\n", common.BoxPrefix(i == len(parcels)-1), p.Item, p.Count, p.Reason)
		}

	case "claim":
		count, err := svc.ClaimParcel(ctx, actor, f.itemRef())
		if err != nil {
			return err
		}
		fmt.Printf("claimed %d %s\n", count, f.itemRef())

	case "deposit":
		credited, err := svc.DepositCurrency(ctx, actor, f.itemRef(), *f.quantity)
		if err != nil {
			return err
		}
		fmt.Printf("deposited %d %s for %s\n", *f.quantity, f.itemRef(), common.FormatAmount(credited))

	case "withdraw":
		amount, err := money.Parse(*f.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", *f.amount, err)
		}
		payouts, err := svc.WithdrawCurrency(ctx, actor, amount)
		if err != nil {
			return err
		}
		for _, p := range payouts {
			fmt.Printf("withdrew %d %s (%s)\n", p.Count, p.Item, common.FormatAmount(p.Value))
		}

	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

// drainGrants runs item grants queued by a committed trade. The continuation
// is queued just after the future resolves, so wait briefly for it.
func drainGrants(loop *gateway.Loop) {
	select {
	case <-loop.Wake():
	case <-time.After(grantTimeout):
		zap.L().Warn("Timed out waiting for item grants")
	}
	loop.RunPending()
}
