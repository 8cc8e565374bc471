package main

import (
	"fmt"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/spf13/cobra"
)

type normalizeResult struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <address>...",
		Short: "Convert geocoded Chicago addresses to the 311 form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]normalizeResult, 0, len(args))
			failed := 0
			for _, addr := range args {
				res := normalizeResult{Input: addr}
				normalized, err := domain.NormalizeAddress(addr)
				if err != nil {
					res.Error = err.Error()
					failed++
				} else {
					res.Normalized = normalized
				}
				results = append(results, res)
			}

			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if failed > 0 {
				return withCode(exitValidation, fmt.Errorf("%d of %d addresses could not be normalized", failed, len(args)))
			}
			return nil
		},
	}
}

type validateResult struct {
	Address string                `json:"address"`
	Valid   bool                  `json:"valid"`
	Kind    domain.ValidationKind `json:"kind,omitempty"`
	Message string                `json:"message,omitempty"`
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <address>...",
		Short: "Check addresses against the 311 address format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]validateResult, 0, len(args))
			invalid := 0
			for _, addr := range args {
				res := validateResult{Address: addr, Valid: true}
				if err := domain.ValidateAddress(addr); err != nil {
					res.Valid = false
					invalid++
					if verr, ok := domain.AsValidationError(err); ok {
						res.Kind = verr.Kind
						res.Message = verr.Message
					} else {
						res.Message = err.Error()
					}
				}
				results = append(results, res)
			}

			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if invalid > 0 {
				return withCode(exitValidation, fmt.Errorf("%d of %d addresses are invalid", invalid, len(args)))
			}
			return nil
		},
	}
}
