package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fjod/go_cart/cart-sync/internal/domain"
	"github.com/fjod/go_cart/cart-sync/internal/store"
	"github.com/spf13/cobra"
)

var (
	lineColor string
	lineSize  string

	addName     string
	addImage    string
	addPrice    int64
	addQty      int
	addOption   string
	addDiscount float64
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the cart from the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			printCart(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local cart with the backend and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			s.Load(cmd.Context())
			printCart(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(args[0]) == "" {
			return errors.New("product id is required")
		}
		line := domain.CartLine{
			ProductID:    args[0],
			ProductName:  addName,
			ProductImage: addImage,
			Price:        addPrice,
			Quantity:     addQty,
			Option:       addOption,
			Color:        lineColor,
			Size:         lineSize,
			DiscountRate: addDiscount,
		}
		return withStore(cmd.Context(), func(s *store.Store) error {
			s.AddToCart(cmd.Context(), line)
			printCart(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a cart line, whatever its quantity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			s.RemoveFromCart(cmd.Context(), args[0], lineColor, lineSize)
			printCart(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var setQtyCmd = &cobra.Command{
	Use:   "set-qty <product-id> <quantity>",
	Short: "Set the quantity of a cart line (minimum 1)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[1], err)
		}
		return withStore(cmd.Context(), func(s *store.Store) error {
			s.UpdateQuantity(cmd.Context(), args[0], qty, lineColor, lineSize)
			printCart(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the local cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			s.ClearCart(cmd.Context())
			printCart(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, removeCmd, setQtyCmd} {
		c.Flags().StringVar(&lineColor, "color", "", "variant color")
		c.Flags().StringVar(&lineSize, "size", "", "variant size")
	}
	addCmd.Flags().StringVar(&addName, "name", "", "product name")
	addCmd.Flags().StringVar(&addImage, "image", "", "product image URL")
	addCmd.Flags().Int64Var(&addPrice, "price", 0, "unit price in won")
	addCmd.Flags().IntVarP(&addQty, "quantity", "q", 1, "quantity to add")
	addCmd.Flags().StringVar(&addOption, "option", "", "option label")
	addCmd.Flags().Float64Var(&addDiscount, "discount", 0, "discount rate, percent")
}

func printCart(out io.Writer, s *store.Store) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tCOLOR\tSIZE\tQTY\tPRICE\tSUBTOTAL")
	items := domain.Snapshot(s.Items())
	for _, line := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			line.ProductID, line.ProductName, line.Color, line.Size,
			line.Quantity, line.Price, line.Subtotal())
	}
	fmt.Fprintf(w, "\t\t\t\t%d\t\t%d\n", items.ItemCount(), items.TotalPrice())
	w.Flush()
}
