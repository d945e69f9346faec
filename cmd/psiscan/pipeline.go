package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/chebyshev"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/config"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/fluctuation"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/primes"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/quadrature"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/zeros"
)

func buildProvider(cfg config.ZerosConfig, logger logrus.FieldLogger) (zeros.Provider, error) {
	switch cfg.Source {
	case config.ZeroSourceRefined:
		logger.WithFields(logrus.Fields{"count": cfg.Count, "step": cfg.RefineStep}).Info("Locating zeros from Riemann-Siegel Z")
		p, err := zeros.NewRefinedProvider(cfg.Count, cfg.RefineStep)
		if err != nil {
			return nil, fmt.Errorf("refined zeros: %w", err)
		}
		return p, nil
	default:
		p, err := zeros.NewAsymptoticProvider(cfg.Count)
		if err != nil {
			return nil, fmt.Errorf("asymptotic zeros: %w", err)
		}
		return p, nil
	}
}

func buildApproximator(cfg *config.Config, logger logrus.FieldLogger) (*chebyshev.Approximator, error) {
	provider, err := buildProvider(cfg.Zeros, logger)
	if err != nil {
		return nil, err
	}

	b0 := cfg.Zeros.ConstantTerm
	approx := chebyshev.New(provider, chebyshev.Options{
		SmallXThreshold: cfg.Zeros.SmallXThreshold,
		MaxHeight:       cfg.Zeros.MaxHeight,
		ConstantTerm:    &b0,
		Primes:          primes.NewCache(cfg.Performance.PrimeCacheEntries),
		Logger:          logger,
	})

	set := approx.ZeroSet()
	logger.WithFields(logrus.Fields{
		"source": cfg.Zeros.Source,
		"zeros":  set.Len(),
		"exact":  set.Exact(),
	}).Debug("Zero set ready")
	return approx, nil
}

func buildCalculator(cfg *config.Config, logger logrus.FieldLogger) (*fluctuation.Calculator, error) {
	approx, err := buildApproximator(cfg, logger)
	if err != nil {
		return nil, err
	}

	policy, err := fluctuation.ParsePolicy(cfg.Calculation.ConvergencePolicy)
	if err != nil {
		return nil, err
	}

	return fluctuation.NewCalculator(approx, fluctuation.Options{
		Segments:    cfg.Calculation.Segments,
		LimitFactor: cfg.Calculation.LimitFactor,
		Quadrature: quadrature.Options{
			AbsTol:          cfg.Calculation.AbsTol,
			RelTol:          cfg.Calculation.RelTol,
			MaxSubdivisions: cfg.Calculation.MaxSubdivisions,
		},
		Policy:         policy,
		RelaxFactor:    cfg.Calculation.RelaxFactor,
		SegmentTimeout: cfg.Calculation.SegmentTimeout,
		Logger:         logger,
	}), nil
}
