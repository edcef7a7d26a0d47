package main

import (
	"fmt"
	"strings"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/qrcode"

	"github.com/spf13/cobra"
)

func payCmd(opts *globalOptions) *cobra.Command {
	var (
		method, plan, email, name string
		card                      domain.CardData
		noQR                      bool
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Cria um pagamento (pix, boleto ou credit_card)",
		Example: `  payctl pay --method pix --plan basico --email ana@example.com
  payctl pay --method credit_card --plan premium --card-number 4111111111111112 \
      --card-expiry 12/30 --card-cvv 123 --card-holder "ANA SILVA"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.close()

			req := &domain.PaymentRequest{
				Method:   method,
				PlanID:   plan,
				Customer: domain.Customer{Name: name, Email: strings.TrimSpace(email)},
			}
			if card.Number != "" || card.Expiry != "" || card.CVV != "" || card.HolderName != "" {
				c := card
				req.Card = &c
			}

			res, err := a.payments.Process(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, res)
			}
			printResult(out, res)
			if res.PixCode != "" && !noQR {
				fmt.Fprintln(out)
				qrcode.Terminal(res.PixCode, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "Método: pix, boleto ou credit_card")
	cmd.Flags().StringVarP(&plan, "plan", "p", "", "Plano: basico ou premium")
	cmd.Flags().StringVarP(&email, "email", "e", "", "E-mail do pagador")
	cmd.Flags().StringVar(&name, "name", "Usuário", "Nome do pagador")
	cmd.Flags().StringVar(&card.Number, "card-number", "", "Número do cartão")
	cmd.Flags().StringVar(&card.Expiry, "card-expiry", "", "Validade (MM/AA)")
	cmd.Flags().StringVar(&card.CVV, "card-cvv", "", "CVV")
	cmd.Flags().StringVar(&card.HolderName, "card-holder", "", "Nome impresso no cartão")
	cmd.Flags().StringVar(&card.DocumentID, "card-document", "", "CPF do titular")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "Não desenha o QR code do PIX")
	_ = cmd.MarkFlagRequired("method")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [transaction-id]",
		Short: "Consulta o status de uma transação (confirma pendências)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.payments.CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func refundCmd(opts *globalOptions) *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "refund [transaction-id]",
		Short: "Estorna uma transação aprovada (total quando --amount é omitido)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.payments.Refund(cmd.Context(), args[0], amount)
			if err != nil {
				return describe(err)
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Valor a estornar em BRL")
	return cmd
}

func plansCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Lista os planos do catálogo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.close()

			plans := a.payments.Plans()
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, plans)
			}
			for _, p := range plans {
				fmt.Fprintf(out, "%-8s %-8s %s\n", p.Code, p.Price, p.Description)
				for _, b := range p.Benefits {
					fmt.Fprintf(out, "         - %s\n", b)
				}
			}
			return nil
		},
	}
}

// describe acrescenta o código do erro à mensagem.
func describe(err error) error {
	return fmt.Errorf("%s (%s)", err.Error(), domain.ErrorCode(err))
}
