package main

import (
	"benritz/giltcalc/internal/curve"
	"benritz/giltcalc/internal/pricing"
	"benritz/giltcalc/internal/types"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

func optionalFloat(flagsSet map[string]bool, name string, value *float64) *float64 {
	if !flagsSet[name] {
		return nil
	}
	return value
}

func printResult(terms types.GiltTerms, res *types.ValuationResult) {
	fmt.Printf("Gilt Details:\n")
	fmt.Printf("\tType: %s\n", terms.Type)
	fmt.Printf("\tISIN: %s\n", terms.ISIN)
	fmt.Printf("\tCoupon Rate: %.3f%%\n", terms.CouponRatePercent)
	fmt.Printf("\tPayments Per Year: %d\n", terms.PaymentsPerYear())
	fmt.Printf("\tIssue Date: %s\n", terms.IssueDate.Format(types.DateLayout))
	fmt.Printf("\tMaturity Date: %s\n", terms.MaturityDate.Format(types.DateLayout))
	fmt.Printf("\tSettlement Date: %s\n", res.SettlementDate.Format(types.DateLayout))
	fmt.Printf("\tPrice Source: %s\n", res.PriceSource)
	fmt.Printf("\tClean Price: %.3f\n", res.CleanPrice)
	fmt.Printf("\tDirty Price: %.3f\n", res.DirtyPrice)
	fmt.Printf("\tAccrued Days: %d\n", res.AccruedDays)
	fmt.Printf("\tAccrued Amount: %.6f\n", res.AccruedInterest)
	fmt.Printf("\tCoupon Period Days: %d\n", res.CouponPeriodDays)
	fmt.Printf("\tCoupon Periods: %d\n", len(res.Cashflows))
	fmt.Printf("\tPrevious Coupon Date: %s\n", res.PrevCouponDate.Format(types.DateLayout))
	fmt.Printf("\tNext Coupon Date: %s\n", res.NextCouponDate.Format(types.DateLayout))

	if years, days, err := types.MaturityYears(res.SettlementDate, terms.MaturityDate); err == nil {
		fmt.Printf("\tMaturity Years: %d\n", years)
		fmt.Printf("\tMaturity Days: %d\n", days)
	}

	fmt.Printf("\tYield to Maturity: %.6f%%\n", res.YieldToMaturityPercent)
	fmt.Printf("\tModified Duration: %.4f\n", res.ModifiedDurationYears)
	fmt.Printf("\tMacaulay Duration: %.4f\n", res.MacaulayDurationYears)
	fmt.Printf("\tConvexity: %.4f\n", res.Convexity)
	fmt.Printf("\tPV01: %.6f\n", res.PV01)

	fmt.Printf("\nYield Sensitivity:\n")
	for _, s := range pricing.Sensitivities(res) {
		fmt.Printf("\t%7s  %9.3f  %+8.3f  %+7.2f%%\n", s.Label, s.Price, s.Change, s.ChangePercent)
	}
}

func printCashflows(res *types.ValuationResult) {
	fmt.Printf("\nCashflows:\n")
	for _, cf := range res.Cashflows {
		fmt.Printf("\t%s  %9.4f  %9.4f\n", cf.Date.Format(types.DateLayout), cf.Coupon, cf.Amount())
	}
}

func printProjection(terms types.GiltTerms, res *types.ValuationResult, step pricing.ProjectionStep) error {
	points, err := pricing.Project(terms, res.SettlementDate, res.YieldToMaturityPercent, step)
	if err != nil {
		return err
	}

	fmt.Printf("\nProjection at %.4f%% (%s):\n", res.YieldToMaturityPercent, step)
	for _, p := range points {
		fmt.Printf("\t%s  %9.3f  %7.3f\n", p.Date.Format(types.DateLayout), p.CleanPrice, p.ModifiedDurationYears)
	}
	return nil
}

func main() {
	isin := flag.String("isin", "GB0000000000", "ISIN of the gilt")
	name := flag.String("name", "", "Description of the gilt")
	coupon := flag.Float64("coupon", 0.0, "Coupon rate (%) of the gilt")
	frequency := flag.Int("frequency", types.DefaultFrequency, "Coupon payments per year")
	cleanPrice := flag.Float64("cleanprice", 0.0, "Market clean price of the gilt")
	ytm := flag.Float64("ytm", 0.0, "Yield (%) used to model the price when no clean price is given")
	issueDateStr := flag.String("issuedate", "", "Issue date of the gilt (YYYY-MM-DD)")
	settlementDateStr := flag.String("settlementdate", "", "Settlement date (YYYY-MM-DD), defaults to today")
	maturityDateStr := flag.String("maturitydate", "", "Maturity date of the gilt (YYYY-MM-DD)")
	curvePath := flag.String("curve", "", "Spot curve JSON used to model the price when no clean price is given")
	cashflows := flag.Bool("cashflows", false, "Print the remaining cashflows")
	project := flag.String("project", "", "Project the price at the yield: monthly, quarterly, annual or five-yearly")

	flag.Parse()

	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if !flagsSet["coupon"] {
		fmt.Println("Error: -coupon flag is required")
		os.Exit(1)
	}

	form := types.TermsForm{
		ISIN:           *isin,
		Name:           *name,
		Coupon:         coupon,
		IssueDate:      *issueDateStr,
		MaturityDate:   *maturityDateStr,
		SettlementDate: *settlementDateStr,
		Frequency:      *frequency,
		CleanPrice:     optionalFloat(flagsSet, "cleanprice", cleanPrice),
		DiscountRate:   optionalFloat(flagsSet, "ytm", ytm),
	}

	req, err := form.Request(time.Now())
	if err != nil {
		var fieldErrs types.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				fmt.Printf("Error: -%s %s\n", fe.Field, fe.Message)
			}
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}

	if *curvePath != "" && req.MarketCleanPrice == nil && req.DiscountRatePercent == nil {
		curves, err := curve.LoadSpotCurves(*curvePath)
		if err != nil {
			fmt.Printf("Error loading curve: %v\n", err)
			os.Exit(1)
		}
		spot, err := curves.At(req.SettlementDate)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		req.Curve = spot
	}

	res, err := pricing.Evaluate(req)
	if err != nil {
		fmt.Printf("Error evaluating gilt: %v\n", err)
		os.Exit(1)
	}

	printResult(req.Terms, res)

	if *cashflows {
		printCashflows(res)
	}

	if *project != "" {
		step, err := pricing.ParseProjectionStep(*project)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if err := printProjection(req.Terms, res, step); err != nil {
			fmt.Printf("Error projecting gilt: %v\n", err)
			os.Exit(1)
		}
	}
}
