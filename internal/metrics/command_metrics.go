package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK — метка успешного выполнения команды.
const OutcomeOK = "ok"

// CommandMetrics содержит метрики команд и запросов ядра торговли.
// Нулевой указатель допустим: все методы тогда ничего не делают.
type CommandMetrics struct {
	// Счётчик выполненных команд по имени и исходу (ok или категория ошибки)
	commands *prometheus.CounterVec
	// Время выполнения команды, включая транзакцию
	duration *prometheus.HistogramVec
	// Откаты транзакций по имени команды
	rollbacks *prometheus.CounterVec
	// Команды, выполняющиеся прямо сейчас
	inFlight prometheus.Gauge

	// Разрешения цены по источнику: catalog или price_list
	priceResolutions *prometheus.CounterVec
}

// NewCommandMetrics регистрирует метрики в DefaultRegisterer.
func NewCommandMetrics() *CommandMetrics {
	return NewCommandMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCommandMetricsWithRegisterer регистрирует метрики в указанном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewCommandMetricsWithRegisterer(registerer prometheus.Registerer) *CommandMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CommandMetrics{
		commands: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_commands_total",
			Help: "Total number of executed commands by name and outcome",
		}, []string{"command", "outcome"})),
		duration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trading_command_duration_seconds",
			Help:    "Duration of command execution in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"command"})),
		rollbacks: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_transaction_rollbacks_total",
			Help: "Total number of rolled back command transactions",
		}, []string{"command"})),
		inFlight: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trading_commands_in_flight",
			Help: "Number of commands currently executing",
		})),
		priceResolutions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_price_resolutions_total",
			Help: "Total number of price resolutions by source",
		}, []string{"source"})),
	}
}

// register регистрирует коллектор или возвращает ранее зарегистрированный того же типа.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}
	alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(fmt.Sprintf("register collector: %v", err))
	}
	existing, ok := alreadyRegistered.ExistingCollector.(C)
	if !ok {
		panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
	}
	return existing
}

// CommandStarted отмечает начало выполнения команды.
func (m *CommandMetrics) CommandStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// CommandFinished записывает исход и длительность команды.
func (m *CommandMetrics) CommandFinished(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.commands.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordRollback увеличивает счётчик откатов транзакций.
func (m *CommandMetrics) RecordRollback(command string) {
	if m == nil {
		return
	}
	m.rollbacks.WithLabelValues(command).Inc()
}

// RecordPriceResolution увеличивает счётчик разрешений цены.
func (m *CommandMetrics) RecordPriceResolution(source string) {
	if m == nil {
		return
	}
	m.priceResolutions.WithLabelValues(source).Inc()
}
