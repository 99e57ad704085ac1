package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"labcommerce/internal/apiclient"
	"labcommerce/internal/domain"
	cartsvc "labcommerce/internal/service/cart"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func catalogCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List orderable lab tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			items, err := env.client().ListCatalog(cmd.Context(), category)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODE\tNAME\tCATEGORY\tPRICE")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Code, it.Name, it.Category, it.Price.StringFixed(2))
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("category", "", "Only list this category")
	return cmd
}

func addCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "add ITEM_ID",
		Short: "Add a test to the cart, or bump its quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := env.client().GetCatalogItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s, err := env.session(cmd)
			if err != nil {
				return err
			}
			s.AddItem(cmd.Context(), *item)
			return printCart(cmd.OutOrStdout(), s)
		},
	}
}

func removeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ITEM_ID",
		Short: "Remove a test from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.session(cmd)
			if err != nil {
				return err
			}
			s.RemoveItem(cmd.Context(), args[0])
			return printCart(cmd.OutOrStdout(), s)
		},
	}
}

func setCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "set ITEM_ID QUANTITY",
		Short: "Set the quantity of a test; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := cartsvc.ParseQuantity(args[1])
			if err != nil {
				return err
			}
			s, err := env.session(cmd)
			if err != nil {
				return err
			}
			s.SetQuantity(cmd.Context(), args[0], qty)
			return printCart(cmd.OutOrStdout(), s)
		},
	}
}

func showCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show cart lines and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.session(cmd)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), s)
		},
	}
}

func clearCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.session(cmd)
			if err != nil {
				return err
			}
			s.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
			return nil
		},
	}
}

func checkoutCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Submit the cart as an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := checkoutRequest(cmd)
			if err != nil {
				return err
			}
			s, err := env.session(cmd)
			if err != nil {
				return err
			}
			client := env.client()
			o, err := s.Checkout(cmd.Context(), func(ctx context.Context, lines []domain.CheckoutLine) (*domain.Order, error) {
				req.Items = lines
				return client.Checkout(ctx, req)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order %s placed (%s)\n", o.OrderNumber, o.Status)
			fmt.Fprintf(out, "subtotal %s  fee %s  total %s\n", o.Subtotal.StringFixed(2), o.Fee.StringFixed(2), o.TotalAmount.StringFixed(2))
			fmt.Fprintf(out, "payment %s via %s\n", o.PaymentStatus, o.PaymentMethod)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("first-name", "", "Buyer first name")
	f.String("last-name", "", "Buyer last name")
	f.String("email", "", "Buyer email")
	f.String("phone", "", "Buyer phone")
	f.String("dob", "", "Buyer date of birth (YYYY-MM-DD)")
	f.String("payment", string(domain.PaymentPathSelfPay), "Payment path: self_pay or insurance")
	f.String("method", "", "Self-pay method: card or cash")
	f.String("provider", "", "Insurance provider")
	f.String("policy", "", "Insurance policy number")
	f.String("idempotency-key", "", "Reuse to retry a checkout safely (default: random)")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func checkoutRequest(cmd *cobra.Command) (apiclient.CheckoutRequest, error) {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	req := apiclient.CheckoutRequest{
		Buyer: domain.Buyer{
			FirstName:   str("first-name"),
			LastName:    str("last-name"),
			Email:       str("email"),
			Phone:       str("phone"),
			DateOfBirth: str("dob"),
		},
		PaymentPath:    domain.PaymentPath(str("payment")),
		IdempotencyKey: str("idempotency-key"),
	}
	switch req.PaymentPath {
	case domain.PaymentPathSelfPay:
		if m := str("method"); m != "" {
			method, err := domain.ParsePaymentMethod(m)
			if err != nil {
				return req, err
			}
			req.PaymentMethod = method
		}
	case domain.PaymentPathInsurance:
		req.Insurance = &domain.Insurance{Provider: str("provider"), PolicyNumber: str("policy")}
	default:
		return req, domain.NewValidationError(fmt.Sprintf("unknown payment path %q", req.PaymentPath), "payment")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	return req, nil
}

func printCart(out io.Writer, s *cartsvc.Session) error {
	if s.IsEmpty() {
		fmt.Fprintf(out, "cart is empty (fee %s)\n", domain.ServiceFee.StringFixed(2))
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tUNIT\tLINE")
	for _, l := range s.Lines() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.Item.ID, l.Item.Name, l.Quantity, l.Item.Price.StringFixed(2), l.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t%d items\t\tsubtotal\t%s\n", s.ItemCount(), s.Subtotal().StringFixed(2))
	fmt.Fprintf(w, "\t\t\tfee\t%s\n", domain.ServiceFee.StringFixed(2))
	fmt.Fprintf(w, "\t\t\ttotal\t%s\n", s.Total().StringFixed(2))
	return w.Flush()
}
