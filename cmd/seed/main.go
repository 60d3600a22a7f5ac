// Seeds a sample product, checkout and pending payment so the verify
// flow can be exercised locally against a sandbox gateway payment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"checkout-payments/internal/config"
	pg "checkout-payments/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	gatewayPaymentID := flag.String("payment", "", "sandbox gateway payment id to attach to the seeded payment row")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// If a checkout already exists, do nothing.
	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM checkouts`).Scan(&existing); err != nil {
		log.Fatalf("count checkouts: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d checkouts already present. No changes.\n", existing)
		return
	}

	productID := uuid.NewString()
	checkoutID := uuid.NewString()
	sellerID := uuid.NewString()

	_, err = pool.Exec(ctx, `
		INSERT INTO products (id, name, description, member_area_link)
		VALUES ($1, $2, $3, $4)`,
		productID, "Curso de Exemplo", "Produto de teste para o fluxo de pagamento", "https://members.example.com/curso")
	if err != nil {
		log.Fatalf("seed product: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO checkouts (id, seller_user_id, product_id, email_enabled, support_email)
		VALUES ($1, $2, $3, true, $4)`,
		checkoutID, sellerID, productID, "suporte@example.com")
	if err != nil {
		log.Fatalf("seed checkout: %v", err)
	}

	fmt.Printf("seeded: product=%s checkout=%s\n", productID, checkoutID)

	if *gatewayPaymentID != "" {
		paymentID := uuid.NewString()
		_, err = pool.Exec(ctx, `
			INSERT INTO payments (id, gateway_payment_id, checkout_id, amount, status, meta)
			VALUES ($1, $2, $3, 9700, 'pending', '{"customer_data":{"name":"Comprador Teste","email":"comprador@example.com"}}')`,
			paymentID, *gatewayPaymentID, checkoutID)
		if err != nil {
			log.Fatalf("seed payment: %v", err)
		}
		fmt.Printf("seeded: payment=%s gateway_payment_id=%s\n", paymentID, *gatewayPaymentID)
	}

	fmt.Println("Seeding complete.")
}
